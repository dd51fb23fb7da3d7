package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sevasangam/puja-bookings/internal/adapters/razorpay"
	redisadapter "github.com/sevasangam/puja-bookings/internal/adapters/redis"
	"github.com/sevasangam/puja-bookings/internal/domain"
)

// OrderRepository is the durable order store. Every update method carries its
// status precondition into the store so the check and the write are one
// atomic operation; services never read-then-write a status.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	UpdateTransition(ctx context.Context, orderID uuid.UUID, expected, next domain.FulfillmentStatus) (*domain.Order, error)
	AssignPandit(ctx context.Context, orderID, panditID uuid.UUID, expected, next domain.FulfillmentStatus) (*domain.Order, error)
	UnassignPandit(ctx context.Context, orderID uuid.UUID, expected domain.FulfillmentStatus) (*domain.Order, error)
	AttachProof(ctx context.Context, orderID uuid.UUID, proofURL string, completedAt time.Time) (*domain.Order, error)
	ListUnassigned(ctx context.Context) ([]domain.Order, error)
}

// Catalog is the read-only pooja/temple/chadhava catalog. Pricing always
// comes from here, never from client input.
type Catalog interface {
	GetPooja(ctx context.Context, id uuid.UUID) (*domain.Pooja, error)
	GetTemple(ctx context.Context, id uuid.UUID) (*domain.Temple, error)
	GetChadhavas(ctx context.Context, ids []uuid.UUID) ([]domain.Chadhava, error)
}

// PaymentGateway is the narrow contract with the payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, receipt string) (*razorpay.GatewayOrder, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	PublicKey() string
}

// IntentStore keeps the cart identity between intent creation and payment
// verification.
type IntentStore interface {
	SaveIntent(ctx context.Context, rec redisadapter.IntentRecord, ttl time.Duration) error
	GetIntent(ctx context.Context, gatewayOrderID string) (*redisadapter.IntentRecord, error)
}
