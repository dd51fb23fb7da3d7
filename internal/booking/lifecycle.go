package booking

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

// Lifecycle owns the fulfillment status axis. Reads here are only for
// precise error reporting; the authoritative precondition check is the
// conditional update inside the repository, so concurrent transitions can
// never both succeed. The repository also records the broker event for each
// committed transition in the same transaction, so nothing is published from
// here.
type Lifecycle struct {
	repo     OrderRepository
	notifier *Dispatcher
	logger   observability.Logger
}

func NewLifecycle(repo OrderRepository, notifier *Dispatcher, logger observability.Logger) *Lifecycle {
	return &Lifecycle{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// SetStatus moves an order to next. Only the operator-driven transitions are
// reachable here: confirmation happens through assignment, completion
// through proof attachment, and the return to pending through unassignment.
func (l *Lifecycle) SetStatus(ctx context.Context, orderID uuid.UUID, next domain.FulfillmentStatus) (*domain.Order, error) {
	switch next {
	case domain.FulfillmentInProgress, domain.FulfillmentCancelled:
	case domain.FulfillmentConfirmed:
		return nil, errors.Wrap(domain.ErrIllegalTransition, "confirmation requires assigning a pandit")
	case domain.FulfillmentCompleted:
		return nil, errors.Wrap(domain.ErrIllegalTransition, "completion requires a proof artifact")
	case domain.FulfillmentPending:
		return nil, errors.Wrap(domain.ErrIllegalTransition, "orders return to pending by unassigning the pandit")
	default:
		return nil, errors.Wrapf(domain.ErrValidation, "unknown fulfillment status %q", string(next))
	}

	order, err := l.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CheckTransition(next); err != nil {
		return nil, err
	}

	updated, err := l.repo.UpdateTransition(ctx, orderID, order.FulfillmentStatus, next)
	if err != nil {
		return nil, err
	}

	l.afterTransition(order.FulfillmentStatus, *updated)
	return updated, nil
}

// Cancel is the guarded self-service cancellation: legal from pending and
// confirmed only. Once the pandit has started, or finished, the order stays.
func (l *Lifecycle) Cancel(ctx context.Context, orderID uuid.UUID, actor string) (*domain.Order, error) {
	order, err := l.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CheckTransition(domain.FulfillmentCancelled); err != nil {
		return nil, err
	}

	updated, err := l.repo.UpdateTransition(ctx, orderID, order.FulfillmentStatus, domain.FulfillmentCancelled)
	if err != nil {
		return nil, err
	}

	l.logger.WithField("booking_id", updated.BookingID).WithField("actor", actor).Info("order cancelled")
	l.afterTransition(order.FulfillmentStatus, *updated)
	return updated, nil
}

// AttachProof records the completion artifact and moves the order to
// completed in one conditional update against IN_PROGRESS.
func (l *Lifecycle) AttachProof(ctx context.Context, orderID uuid.UUID, proofURL string) (*domain.Order, error) {
	if strings.TrimSpace(proofURL) == "" {
		return nil, errors.Wrap(domain.ErrValidation, "proof artifact url is required")
	}

	order, err := l.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	candidate := *order
	candidate.ProofURL = proofURL
	if err := candidate.CheckTransition(domain.FulfillmentCompleted); err != nil {
		return nil, err
	}

	updated, err := l.repo.AttachProof(ctx, orderID, proofURL, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	l.afterTransition(order.FulfillmentStatus, *updated)
	return updated, nil
}

// afterTransition runs only once the transition is durably committed.
// Devotee notification fires for the externally visible states.
func (l *Lifecycle) afterTransition(from domain.FulfillmentStatus, updated domain.Order) {
	observability.Transitions.WithLabelValues(string(from), string(updated.FulfillmentStatus)).Inc()

	switch updated.FulfillmentStatus {
	case domain.FulfillmentConfirmed:
		l.notifier.Dispatch(updated, EventConfirmed)
	case domain.FulfillmentCompleted:
		l.notifier.Dispatch(updated, EventCompleted)
	}
}
