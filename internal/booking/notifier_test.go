package booking_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sevasangam/puja-bookings/internal/adapters/msg"
	"github.com/sevasangam/puja-bookings/internal/booking"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

func TestDispatcher_DeliversConfirmation(t *testing.T) {
	logger := observability.NewLogger()
	mock := msg.NewMock(logger)
	d := booking.NewDispatcher(mock, time.Second, logger)

	panditID := uuid.New()
	order := domain.Order{
		BookingID:   "PB-TEST-0001AAAA",
		DevoteeName: "Ramesh Kumar",
		Phone:       "+919876543210",
		PoojaName:   "Rudrabhishek",
		TempleName:  "Kashi Vishwanath",
		PoojaDate:   time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
		PanditID:    &panditID,
	}

	d.Dispatch(order, booking.EventConfirmed)
	d.Flush()

	messages := mock.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
	body := messages[0].Body
	for _, want := range []string{"Ramesh Kumar", "PB-TEST-0001AAAA", "Rudrabhishek", "Kashi Vishwanath", "02 Oct 2026"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got %q", want, body)
		}
	}
	if messages[0].To != order.Phone {
		t.Errorf("expected message to %s, got %s", order.Phone, messages[0].To)
	}
}

func TestDispatcher_CompletionCarriesProof(t *testing.T) {
	logger := observability.NewLogger()
	mock := msg.NewMock(logger)
	d := booking.NewDispatcher(mock, time.Second, logger)

	order := domain.Order{
		BookingID:   "PB-TEST-0002BBBB",
		DevoteeName: "Sita Devi",
		Phone:       "+919812345678",
		PoojaName:   "Satyanarayan Katha",
		ProofURL:    "https://cdn.example.com/proofs/2.mp4",
	}

	d.Dispatch(order, booking.EventCompleted)
	d.Flush()

	messages := mock.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
	if !strings.Contains(messages[0].Body, order.ProofURL) {
		t.Errorf("expected completion message to carry the proof link, got %q", messages[0].Body)
	}
}

func TestDispatcher_SwallowsSenderFailure(t *testing.T) {
	logger := observability.NewLogger()
	mock := msg.NewMock(logger)
	mock.Err = errors.New("provider down")
	d := booking.NewDispatcher(mock, time.Second, logger)

	d.Dispatch(domain.Order{BookingID: "PB-TEST-0003CCCC", Phone: "+911111111111"}, booking.EventConfirmed)
	d.Flush()

	if got := mock.Messages(); len(got) != 0 {
		t.Errorf("expected no recorded message on failure, got %d", len(got))
	}
}
