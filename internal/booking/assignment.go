package booking

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

// Assignment binds and unbinds pandits. Two administrators assigning the
// same order race on the conditional update; the loser re-reads and lands on
// the reassignment branch, so last write wins without corrupting the status
// axis. Broker events for each change are recorded by the repository in the
// transition transaction.
type Assignment struct {
	repo     OrderRepository
	notifier *Dispatcher
	logger   observability.Logger
}

func NewAssignment(repo OrderRepository, notifier *Dispatcher, logger observability.Logger) *Assignment {
	return &Assignment{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func (a *Assignment) Assign(ctx context.Context, orderID, panditID uuid.UUID) (*domain.Order, error) {
	if panditID == uuid.Nil {
		return nil, errors.Wrap(domain.ErrValidation, "pandit id is required")
	}

	for attempt := 0; attempt < 2; attempt++ {
		order, err := a.repo.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}

		switch order.FulfillmentStatus {
		case domain.FulfillmentPending:
			if err := order.CheckTransition(domain.FulfillmentConfirmed); err != nil {
				return nil, err
			}
			updated, err := a.repo.AssignPandit(ctx, orderID, panditID, domain.FulfillmentPending, domain.FulfillmentConfirmed)
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			if err != nil {
				return nil, err
			}
			observability.Transitions.WithLabelValues(string(domain.FulfillmentPending), string(domain.FulfillmentConfirmed)).Inc()
			a.notifier.Dispatch(*updated, EventConfirmed)
			a.logger.WithField("booking_id", updated.BookingID).Info("pandit assigned")
			return updated, nil

		case domain.FulfillmentConfirmed:
			// Reassignment: replace the pandit, keep the status, no notification.
			updated, err := a.repo.AssignPandit(ctx, orderID, panditID, domain.FulfillmentConfirmed, domain.FulfillmentConfirmed)
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			if err != nil {
				return nil, err
			}
			return updated, nil

		default:
			return nil, errors.Wrapf(domain.ErrIllegalTransition, "cannot assign pandit to %s order", order.FulfillmentStatus)
		}
	}

	return nil, domain.ErrConflict
}

// Unassign handles a pandit decline: the pandit reference is cleared and the
// order goes back to pending so it re-enters the assignment pool. The
// devotee does not have to cancel.
func (a *Assignment) Unassign(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := a.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PanditID == nil {
		return nil, errors.Wrap(domain.ErrIllegalTransition, "no pandit assigned")
	}
	switch order.FulfillmentStatus {
	case domain.FulfillmentConfirmed, domain.FulfillmentInProgress:
	default:
		return nil, errors.Wrapf(domain.ErrIllegalTransition, "cannot unassign pandit from %s order", order.FulfillmentStatus)
	}

	updated, err := a.repo.UnassignPandit(ctx, orderID, order.FulfillmentStatus)
	if err != nil {
		return nil, err
	}

	observability.Transitions.WithLabelValues(string(order.FulfillmentStatus), string(domain.FulfillmentPending)).Inc()
	a.logger.WithField("booking_id", updated.BookingID).Info("pandit unassigned")
	return updated, nil
}
