package booking

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

// maxBookingIDAttempts bounds re-allocation after a store collision.
// Collisions are rare by construction, so hitting the bound means something
// is wrong beyond bad luck.
const maxBookingIDAttempts = 3

// Verifier turns a verified gateway callback into a persisted paid order,
// exactly once per gateway order id. It is the only path that creates
// orders: nothing here runs before the signature checks out.
type Verifier struct {
	repo    OrderRepository
	catalog Catalog
	gateway PaymentGateway
	intents IntentStore
	logger  observability.Logger
}

func NewVerifier(repo OrderRepository, catalog Catalog, gateway PaymentGateway, intents IntentStore, logger observability.Logger) *Verifier {
	return &Verifier{
		repo:    repo,
		catalog: catalog,
		gateway: gateway,
		intents: intents,
		logger:  logger,
	}
}

type VerifyRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Details          domain.BookingDetails
}

func (r VerifyRequest) validate() error {
	if r.GatewayOrderID == "" || r.GatewayPaymentID == "" || r.Signature == "" {
		return errors.Wrap(domain.ErrValidation, "gateway order id, payment id and signature are required")
	}
	return r.Details.Validate()
}

// VerifyAndCreateOrder checks the callback signature, guards against
// duplicate callbacks, reprices the cart from the live catalog and persists
// the order. A duplicate gateway order id returns the existing order, never
// a second one. Notification is not this component's job; money moved and
// devotee notified stay independently retryable.
func (v *Verifier) VerifyAndCreateOrder(ctx context.Context, req VerifyRequest) (*domain.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if !v.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		observability.VerificationFailures.Inc()
		v.logger.WithField("gateway_order_id", req.GatewayOrderID).Warn("payment signature mismatch")
		return nil, domain.ErrSignatureInvalid
	}

	existing, err := v.repo.FindByGatewayOrderID(ctx, req.GatewayOrderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	intent, err := v.intents.GetIntent(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, errors.Wrap(domain.ErrValidation, "unknown or expired gateway order")
	}

	pooja, err := v.catalog.GetPooja(ctx, intent.PoojaID)
	if err != nil {
		return nil, err
	}
	temple, err := v.catalog.GetTemple(ctx, pooja.TempleID)
	if err != nil {
		return nil, err
	}
	chadhavas, err := v.catalog.GetChadhavas(ctx, intent.ChadhavaIDs)
	if err != nil {
		return nil, err
	}

	addOns := make([]domain.AddOnItem, 0, len(chadhavas))
	for _, ch := range chadhavas {
		addOns = append(addOns, domain.AddOnItem{
			ChadhavaID: ch.ID,
			Name:       ch.Name,
			Price:      ch.Price,
			Icon:       ch.Icon,
		})
	}

	facts := domain.PaymentFacts{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	}

	for attempt := 0; attempt < maxBookingIDAttempts; attempt++ {
		order, err := domain.NewOrder(req.Details, *pooja, *temple, addOns, facts)
		if err != nil {
			return nil, err
		}

		err = v.repo.Create(ctx, order)
		if errors.Is(err, domain.ErrDuplicateBookingID) {
			observability.BookingIDRetries.Inc()
			continue
		}
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent verification of the same callback won; return its order.
			return v.repo.FindByGatewayOrderID(ctx, req.GatewayOrderID)
		}
		if err != nil {
			return nil, err
		}

		observability.OrdersCreated.Inc()
		v.logger.WithField("booking_id", order.BookingID).Info("order created")
		return &order, nil
	}

	return nil, errors.Wrapf(domain.ErrDuplicateBookingID, "allocation failed after %d attempts", maxBookingIDAttempts)
}
