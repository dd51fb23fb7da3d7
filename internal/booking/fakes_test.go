package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sevasangam/puja-bookings/internal/adapters/razorpay"
	redisadapter "github.com/sevasangam/puja-bookings/internal/adapters/redis"
	"github.com/sevasangam/puja-bookings/internal/domain"
)

// fakeRepo mirrors the store's conditional-update semantics in memory so the
// services' concurrency handling can be exercised without a database.
type fakeRepo struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]domain.Order
	createErrs []error
	creates    int

	// conflictWinner, when set, lands in the store the moment an injected
	// ErrConflict is returned, imitating a concurrent creator winning the race.
	conflictWinner *domain.Order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[uuid.UUID]domain.Order)}
}

func (f *fakeRepo) put(order domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
}

func (f *fakeRepo) Create(ctx context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			if errors.Is(err, domain.ErrConflict) && f.conflictWinner != nil {
				f.orders[f.conflictWinner.ID] = *f.conflictWinner
			}
			return err
		}
	}
	for _, existing := range f.orders {
		if existing.BookingID == order.BookingID {
			return domain.ErrDuplicateBookingID
		}
		if existing.GatewayOrderID == order.GatewayOrderID {
			return domain.ErrConflict
		}
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &order, nil
}

func (f *fakeRepo) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.GatewayOrderID == gatewayOrderID {
			order := order
			return &order, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) UpdateTransition(ctx context.Context, orderID uuid.UUID, expected, next domain.FulfillmentStatus) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if order.FulfillmentStatus != expected {
		return nil, domain.ErrConflict
	}
	order.FulfillmentStatus = next
	order.UpdatedAt = time.Now().UTC()
	f.orders[orderID] = order
	return &order, nil
}

func (f *fakeRepo) AssignPandit(ctx context.Context, orderID, panditID uuid.UUID, expected, next domain.FulfillmentStatus) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if order.FulfillmentStatus != expected || order.PaymentStatus != domain.PaymentPaid {
		return nil, domain.ErrConflict
	}
	order.PanditID = &panditID
	order.FulfillmentStatus = next
	order.UpdatedAt = time.Now().UTC()
	f.orders[orderID] = order
	return &order, nil
}

func (f *fakeRepo) UnassignPandit(ctx context.Context, orderID uuid.UUID, expected domain.FulfillmentStatus) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if order.FulfillmentStatus != expected {
		return nil, domain.ErrConflict
	}
	order.PanditID = nil
	order.FulfillmentStatus = domain.FulfillmentPending
	order.UpdatedAt = time.Now().UTC()
	f.orders[orderID] = order
	return &order, nil
}

func (f *fakeRepo) AttachProof(ctx context.Context, orderID uuid.UUID, proofURL string, completedAt time.Time) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if order.FulfillmentStatus != domain.FulfillmentInProgress {
		return nil, domain.ErrConflict
	}
	order.ProofURL = proofURL
	order.CompletedAt = &completedAt
	order.FulfillmentStatus = domain.FulfillmentCompleted
	order.UpdatedAt = time.Now().UTC()
	f.orders[orderID] = order
	return &order, nil
}

func (f *fakeRepo) ListUnassigned(ctx context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, order := range f.orders {
		if order.PaymentStatus == domain.PaymentPaid && order.FulfillmentStatus == domain.FulfillmentPending {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type fakeCatalog struct {
	poojas    map[uuid.UUID]domain.Pooja
	temples   map[uuid.UUID]domain.Temple
	chadhavas map[uuid.UUID]domain.Chadhava
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		poojas:    make(map[uuid.UUID]domain.Pooja),
		temples:   make(map[uuid.UUID]domain.Temple),
		chadhavas: make(map[uuid.UUID]domain.Chadhava),
	}
}

func (f *fakeCatalog) GetPooja(ctx context.Context, id uuid.UUID) (*domain.Pooja, error) {
	pooja, ok := f.poojas[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &pooja, nil
}

func (f *fakeCatalog) GetTemple(ctx context.Context, id uuid.UUID) (*domain.Temple, error) {
	temple, ok := f.temples[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &temple, nil
}

func (f *fakeCatalog) GetChadhavas(ctx context.Context, ids []uuid.UUID) ([]domain.Chadhava, error) {
	out := make([]domain.Chadhava, 0, len(ids))
	for _, id := range ids {
		ch, ok := f.chadhavas[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		out = append(out, ch)
	}
	return out, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	counter int
}

func fakeSignature(gatewayOrderID, gatewayPaymentID string) string {
	return "sig:" + gatewayOrderID + "|" + gatewayPaymentID
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amount int64, receipt string) (*razorpay.GatewayOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	return &razorpay.GatewayOrder{
		ID:       fmt.Sprintf("order_fake%03d", f.counter),
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (f *fakeGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return signature == fakeSignature(gatewayOrderID, gatewayPaymentID)
}

func (f *fakeGateway) PublicKey() string {
	return "rzp_test_fake"
}

type fakeIntents struct {
	mu      sync.Mutex
	records map[string]redisadapter.IntentRecord
}

func newFakeIntents() *fakeIntents {
	return &fakeIntents{records: make(map[string]redisadapter.IntentRecord)}
}

func (f *fakeIntents) SaveIntent(ctx context.Context, rec redisadapter.IntentRecord, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.GatewayOrderID] = rec
	return nil
}

func (f *fakeIntents) GetIntent(ctx context.Context, gatewayOrderID string) (*redisadapter.IntentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[gatewayOrderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
