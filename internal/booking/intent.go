package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	redisadapter "github.com/sevasangam/puja-bookings/internal/adapters/redis"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

// IntentService quotes a cart and registers the charge with the gateway.
// The quoted amount is advisory; verification reprices from the live catalog.
type IntentService struct {
	catalog Catalog
	gateway PaymentGateway
	intents IntentStore
	ttl     time.Duration
	logger  observability.Logger
}

func NewIntentService(catalog Catalog, gateway PaymentGateway, intents IntentStore, ttl time.Duration, logger observability.Logger) *IntentService {
	return &IntentService{
		catalog: catalog,
		gateway: gateway,
		intents: intents,
		ttl:     ttl,
		logger:  logger,
	}
}

type PaymentIntent struct {
	GatewayOrderID   string
	Amount           int64
	GatewayPublicKey string
}

func (s *IntentService) CreatePaymentIntent(ctx context.Context, poojaID uuid.UUID, chadhavaIDs []uuid.UUID) (*PaymentIntent, error) {
	pooja, err := s.catalog.GetPooja(ctx, poojaID)
	if err != nil {
		return nil, err
	}
	chadhavas, err := s.catalog.GetChadhavas(ctx, chadhavaIDs)
	if err != nil {
		return nil, err
	}

	amount := pooja.BasePrice
	for _, ch := range chadhavas {
		amount += ch.Price
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, amount, uuid.New().String())
	if err != nil {
		return nil, err
	}

	err = s.intents.SaveIntent(ctx, redisadapter.IntentRecord{
		GatewayOrderID: gatewayOrder.ID,
		PoojaID:        poojaID,
		ChadhavaIDs:    chadhavaIDs,
		Amount:         amount,
	}, s.ttl)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("gateway_order_id", gatewayOrder.ID).Info("payment intent created")

	return &PaymentIntent{
		GatewayOrderID:   gatewayOrder.ID,
		Amount:           amount,
		GatewayPublicKey: s.gateway.PublicKey(),
	}, nil
}
