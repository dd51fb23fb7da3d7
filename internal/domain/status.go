package domain

import "github.com/cockroachdb/errors"

// PaymentStatus and FulfillmentStatus are independent axes of an order's
// lifecycle. An order can be PAID and CANCELLED (refund path), but it can
// never reach CONFIRMED or later fulfillment states while unpaid.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type FulfillmentStatus string

const (
	FulfillmentPending    FulfillmentStatus = "PENDING"
	FulfillmentConfirmed  FulfillmentStatus = "CONFIRMED"
	FulfillmentInProgress FulfillmentStatus = "IN_PROGRESS"
	FulfillmentCompleted  FulfillmentStatus = "COMPLETED"
	FulfillmentCancelled  FulfillmentStatus = "CANCELLED"
)

func (s FulfillmentStatus) Valid() bool {
	switch s {
	case FulfillmentPending, FulfillmentConfirmed, FulfillmentInProgress,
		FulfillmentCompleted, FulfillmentCancelled:
		return true
	}
	return false
}

// fulfillmentTransitions lists the statuses reachable from each status.
// PENDING is reachable again from CONFIRMED and IN_PROGRESS because a pandit
// decline must put the order back into the assignment pool without cancelling
// it. COMPLETED and CANCELLED are terminal.
var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentPending:    {FulfillmentConfirmed, FulfillmentCancelled},
	FulfillmentConfirmed:  {FulfillmentInProgress, FulfillmentCancelled, FulfillmentPending},
	FulfillmentInProgress: {FulfillmentCompleted, FulfillmentPending},
	FulfillmentCompleted:  nil,
	FulfillmentCancelled:  nil,
}

func (s FulfillmentStatus) CanTransition(to FulfillmentStatus) bool {
	for _, next := range fulfillmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition validates a fulfillment status change against the full
// order state: the transition table plus the per-transition preconditions.
// The returned error wraps ErrIllegalTransition with the rejected reason.
func (o *Order) CheckTransition(to FulfillmentStatus) error {
	if !to.Valid() {
		return errors.Wrapf(ErrValidation, "unknown fulfillment status %q", string(to))
	}
	if !o.FulfillmentStatus.CanTransition(to) {
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", o.FulfillmentStatus, to)
	}
	switch to {
	case FulfillmentConfirmed:
		if o.PaymentStatus != PaymentPaid {
			return errors.Wrapf(ErrIllegalTransition, "cannot confirm order with payment status %s", o.PaymentStatus)
		}
	case FulfillmentInProgress:
		if o.PanditID == nil {
			return errors.Wrap(ErrIllegalTransition, "cannot start order with no pandit assigned")
		}
	case FulfillmentCompleted:
		if o.ProofURL == "" {
			return errors.Wrap(ErrIllegalTransition, "cannot complete order without a proof artifact")
		}
	}
	return nil
}
