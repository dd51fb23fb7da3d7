package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sevasangam/puja-bookings/internal/adapters/msg"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

type Event string

const (
	EventConfirmed Event = "confirmed"
	EventCompleted Event = "completed"
)

// Dispatcher delivers status messages to the devotee. Dispatch returns
// before delivery happens: each message runs in its own goroutine with its
// own context, and failures are logged and counted, never propagated to the
// transition that triggered them. The contact captured on the order is
// authoritative for that booking; nothing is looked up from a live profile.
type Dispatcher struct {
	sender  msg.Sender
	timeout time.Duration
	logger  observability.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender msg.Sender, timeout time.Duration, logger observability.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		logger:  logger,
	}
}

func (d *Dispatcher) Dispatch(order domain.Order, event Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		status, err := d.sender.Send(ctx, msg.Message{
			To:   order.Phone,
			Body: renderBody(order, event),
		})
		if err != nil {
			observability.Notifications.WithLabelValues(string(event), string(msg.StatusError)).Inc()
			d.logger.WithError(err).WithField("booking_id", order.BookingID).Error("notification delivery failed")
			return
		}
		observability.Notifications.WithLabelValues(string(event), string(status)).Inc()
	}()
}

// Flush waits for in-flight deliveries. Used on shutdown.
func (d *Dispatcher) Flush() {
	d.wg.Wait()
}

func renderBody(order domain.Order, event Event) string {
	switch event {
	case EventConfirmed:
		return fmt.Sprintf(
			"Namaste %s, your booking %s for %s at %s on %s is confirmed. A pandit has been assigned.",
			order.DevoteeName, order.BookingID, order.PoojaName, order.TempleName,
			order.PoojaDate.Format("02 Jan 2006"),
		)
	case EventCompleted:
		return fmt.Sprintf(
			"Namaste %s, your %s (booking %s) has been performed. View your pooja here: %s",
			order.DevoteeName, order.PoojaName, order.BookingID, order.ProofURL,
		)
	}
	return fmt.Sprintf("Your booking %s is now %s.", order.BookingID, order.FulfillmentStatus)
}
