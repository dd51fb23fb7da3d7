package domain

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// AddOnItem is a chadhava snapshot taken at order creation. Catalog edits
// after that point never change a placed order.
type AddOnItem struct {
	ChadhavaID uuid.UUID
	Name       string
	Price      int64
	Icon       string
}

type Order struct {
	ID        uuid.UUID
	BookingID string

	DevoteeID uuid.UUID
	PoojaID   uuid.UUID
	TempleID  uuid.UUID
	PanditID  *uuid.UUID

	PoojaName  string
	TempleName string

	PoojaDate   time.Time
	DevoteeName string
	Gotra       string
	Phone       string
	Wish        string
	Address     string

	AddOns []AddOnItem

	// Amounts are whole rupees. TotalAmount is always BaseAmount + AddOnAmount
	// and is recomputed server-side, never taken from a client.
	BaseAmount  int64
	AddOnAmount int64
	TotalAmount int64

	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus

	ProofURL    string
	CompletedAt *time.Time

	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingDetails is what the devotee submits with the payment callback.
type BookingDetails struct {
	DevoteeID uuid.UUID
	PoojaDate time.Time
	Name      string
	Gotra     string
	Phone     string
	Wish      string
	Address   string
}

func (d BookingDetails) Validate() error {
	if d.DevoteeID == uuid.Nil {
		return errors.Wrap(ErrValidation, "devotee id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return errors.Wrap(ErrValidation, "devotee name is required")
	}
	if strings.TrimSpace(d.Phone) == "" {
		return errors.Wrap(ErrValidation, "contact phone is required")
	}
	if d.PoojaDate.IsZero() {
		return errors.Wrap(ErrValidation, "pooja date is required")
	}
	return nil
}

// PaymentFacts carries the gateway identifiers stored on the order for audit
// and idempotency. They are never used for business logic beyond verification.
type PaymentFacts struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// NewOrder builds a paid order from verified payment facts and a repriced
// cart snapshot. The booking ID is allocated here, in the constructor, so an
// order without one is unrepresentable. Callers retry on
// ErrDuplicateBookingID from the store.
func NewOrder(details BookingDetails, pooja Pooja, temple Temple, addOns []AddOnItem, facts PaymentFacts) (Order, error) {
	if err := details.Validate(); err != nil {
		return Order{}, err
	}
	now := time.Now().UTC()
	o := Order{
		ID:                uuid.New(),
		BookingID:         NewBookingID(),
		DevoteeID:         details.DevoteeID,
		PoojaID:           pooja.ID,
		TempleID:          temple.ID,
		PoojaName:         pooja.Name,
		TempleName:        temple.Name,
		PoojaDate:         details.PoojaDate,
		DevoteeName:       details.Name,
		Gotra:             details.Gotra,
		Phone:             details.Phone,
		Wish:              details.Wish,
		Address:           details.Address,
		AddOns:            addOns,
		BaseAmount:        pooja.BasePrice,
		PaymentStatus:     PaymentPaid,
		FulfillmentStatus: FulfillmentPending,
		GatewayOrderID:    facts.GatewayOrderID,
		GatewayPaymentID:  facts.GatewayPaymentID,
		GatewaySignature:  facts.Signature,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o.Reprice()
	return o, nil
}

// Reprice recomputes AddOnAmount and TotalAmount from the line-item
// snapshots. It must run after every line-item mutation.
func (o *Order) Reprice() {
	var addOn int64
	for _, item := range o.AddOns {
		addOn += item.Price
	}
	o.AddOnAmount = addOn
	o.TotalAmount = o.BaseAmount + addOn
}
