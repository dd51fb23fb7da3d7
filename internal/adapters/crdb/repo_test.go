package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevasangam/puja-bookings/internal/adapters/crdb"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startTestRepo(t *testing.T) *crdb.Repository {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/puja?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		CREATE DATABASE IF NOT EXISTS puja;
		CREATE TABLE IF NOT EXISTS puja.orders (
			id UUID PRIMARY KEY,
			booking_id TEXT NOT NULL UNIQUE,
			devotee_id UUID NOT NULL,
			pooja_id UUID NOT NULL,
			temple_id UUID NOT NULL,
			pandit_id UUID,
			pooja_name TEXT NOT NULL,
			temple_name TEXT NOT NULL,
			pooja_date TIMESTAMPTZ NOT NULL,
			devotee_name TEXT NOT NULL,
			gotra TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL,
			wish TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			base_amount INT8 NOT NULL,
			addon_amount INT8 NOT NULL,
			total_amount INT8 NOT NULL,
			payment_status TEXT NOT NULL CHECK (payment_status IN ('PENDING', 'PAID', 'FAILED', 'REFUNDED')),
			fulfillment_status TEXT NOT NULL CHECK (fulfillment_status IN ('PENDING', 'CONFIRMED', 'IN_PROGRESS', 'COMPLETED', 'CANCELLED')),
			proof_url TEXT NOT NULL DEFAULT '',
			completed_at TIMESTAMPTZ,
			gateway_order_id TEXT NOT NULL UNIQUE,
			gateway_payment_id TEXT NOT NULL,
			gateway_signature TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS puja.order_addons (
			order_id UUID NOT NULL,
			chadhava_id UUID NOT NULL,
			name TEXT NOT NULL,
			price INT8 NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (order_id, chadhava_id)
		);
		CREATE TABLE IF NOT EXISTS puja.outbox (
			id UUID PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id UUID NOT NULL,
			event_type TEXT NOT NULL,
			payload_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			published_at TIMESTAMPTZ,
			status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
			dedupe_key TEXT NOT NULL
		);
	`)
	if err != nil {
		t.Fatal(err)
	}

	return crdb.NewRepository(pool)
}

func testOrder() domain.Order {
	details := domain.BookingDetails{
		DevoteeID: uuid.New(),
		PoojaDate: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
		Name:      "Ramesh Kumar",
		Gotra:     "Bharadwaja",
		Phone:     "+919876543210",
		Address:   "12 MG Road, Varanasi",
	}
	pooja := domain.Pooja{ID: uuid.New(), TempleID: uuid.New(), Name: "Rudrabhishek", BasePrice: 1100}
	temple := domain.Temple{ID: pooja.TempleID, Name: "Kashi Vishwanath", City: "Varanasi"}
	addOns := []domain.AddOnItem{
		{ChadhavaID: uuid.New(), Name: "Bel Patra", Price: 51},
		{ChadhavaID: uuid.New(), Name: "Gangajal", Price: 100},
	}
	order, err := domain.NewOrder(details, pooja, temple, addOns, domain.PaymentFacts{
		GatewayOrderID:   "order_" + uuid.NewString()[:13],
		GatewayPaymentID: "pay_" + uuid.NewString()[:13],
		Signature:        "sig",
	})
	if err != nil {
		panic(err)
	}
	return order
}

func TestRepository_CreateOrder(t *testing.T) {
	repo := startTestRepo(t)
	ctx := context.Background()

	order := testOrder()
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fetched, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.BookingID != order.BookingID || fetched.TotalAmount != 1251 {
		t.Errorf("expected stored order %s with total 1251, got %s with %d",
			order.BookingID, fetched.BookingID, fetched.TotalAmount)
	}
	if len(fetched.AddOns) != 2 {
		t.Errorf("expected 2 add-on snapshots, got %d", len(fetched.AddOns))
	}
	if fetched.FulfillmentStatus != domain.FulfillmentPending || fetched.PaymentStatus != domain.PaymentPaid {
		t.Errorf("expected PAID/PENDING, got %s/%s", fetched.PaymentStatus, fetched.FulfillmentStatus)
	}

	byGateway, err := repo.FindByGatewayOrderID(ctx, order.GatewayOrderID)
	if err != nil {
		t.Fatal(err)
	}
	if byGateway.ID != order.ID {
		t.Errorf("expected lookup by gateway order id to find %s, got %s", order.ID, byGateway.ID)
	}

	records, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].EventType != "order.created" {
		t.Errorf("expected one order.created outbox record, got %v", records)
	}

	dupBooking := testOrder()
	dupBooking.BookingID = order.BookingID
	if err := repo.Create(ctx, dupBooking); !errors.Is(err, domain.ErrDuplicateBookingID) {
		t.Errorf("expected duplicate booking id error, got %v", err)
	}

	dupGateway := testOrder()
	dupGateway.GatewayOrderID = order.GatewayOrderID
	if err := repo.Create(ctx, dupGateway); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict for duplicate gateway order id, got %v", err)
	}
}

func TestRepository_FulfillmentFlow(t *testing.T) {
	repo := startTestRepo(t)
	ctx := context.Background()

	order := testOrder()
	if err := repo.Create(ctx, order); err != nil {
		t.Fatal(err)
	}

	pool, err := repo.ListUnassigned(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pool) != 1 || pool[0].ID != order.ID {
		t.Fatalf("expected new order in the unassigned pool, got %v", pool)
	}
	if len(pool[0].AddOns) != 2 {
		t.Errorf("expected pool listing to carry the add-on snapshots, got %d", len(pool[0].AddOns))
	}

	panditID := uuid.New()
	confirmed, err := repo.AssignPandit(ctx, order.ID, panditID, domain.FulfillmentPending, domain.FulfillmentConfirmed)
	if err != nil {
		t.Fatalf("expected assignment to succeed, got %v", err)
	}
	if confirmed.FulfillmentStatus != domain.FulfillmentConfirmed || confirmed.PanditID == nil || *confirmed.PanditID != panditID {
		t.Errorf("expected CONFIRMED with pandit bound, got %s %v", confirmed.FulfillmentStatus, confirmed.PanditID)
	}

	// The conditional update already moved the order, so the stale
	// precondition must lose.
	_, err = repo.AssignPandit(ctx, order.ID, uuid.New(), domain.FulfillmentPending, domain.FulfillmentConfirmed)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict on stale assignment, got %v", err)
	}

	unassigned, err := repo.UnassignPandit(ctx, order.ID, domain.FulfillmentConfirmed)
	if err != nil {
		t.Fatal(err)
	}
	if unassigned.FulfillmentStatus != domain.FulfillmentPending || unassigned.PanditID != nil {
		t.Errorf("expected PENDING with pandit cleared, got %s %v", unassigned.FulfillmentStatus, unassigned.PanditID)
	}

	if _, err := repo.AssignPandit(ctx, order.ID, panditID, domain.FulfillmentPending, domain.FulfillmentConfirmed); err != nil {
		t.Fatal(err)
	}
	reassigned, err := repo.AssignPandit(ctx, order.ID, uuid.New(), domain.FulfillmentConfirmed, domain.FulfillmentConfirmed)
	if err != nil {
		t.Fatal(err)
	}
	if reassigned.FulfillmentStatus != domain.FulfillmentConfirmed || *reassigned.PanditID == panditID {
		t.Errorf("expected pandit replaced with status unchanged, got %s %v", reassigned.FulfillmentStatus, reassigned.PanditID)
	}
	started, err := repo.UpdateTransition(ctx, order.ID, domain.FulfillmentConfirmed, domain.FulfillmentInProgress)
	if err != nil {
		t.Fatal(err)
	}
	if started.FulfillmentStatus != domain.FulfillmentInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", started.FulfillmentStatus)
	}

	completed, err := repo.AttachProof(ctx, order.ID, "https://cdn.example.com/proofs/1.mp4", time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if completed.FulfillmentStatus != domain.FulfillmentCompleted || completed.CompletedAt == nil || completed.ProofURL == "" {
		t.Errorf("expected COMPLETED with proof, got %s proof %q at %v",
			completed.FulfillmentStatus, completed.ProofURL, completed.CompletedAt)
	}

	_, err = repo.AttachProof(ctx, order.ID, "https://cdn.example.com/proofs/2.mp4", time.Now().UTC())
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict on second completion, got %v", err)
	}

	_, err = repo.UpdateTransition(ctx, uuid.New(), domain.FulfillmentPending, domain.FulfillmentCancelled)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown order, got %v", err)
	}

	pool, err = repo.ListUnassigned(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pool) != 0 {
		t.Errorf("expected empty pool after completion, got %d", len(pool))
	}

	// Every committed transition left an outbox record in its own
	// transaction; the failed stale assignment and second completion rolled
	// back without one.
	records, err := repo.GetUnpublishedOutbox(ctx, 20)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(records))
	for _, rec := range records {
		got = append(got, rec.EventType)
	}
	want := []string{
		"order.created",
		"order.confirmed",
		"order.unassigned",
		"order.confirmed",
		"order.reassigned",
		"order.in_progress",
		"order.completed",
	}
	if len(got) != len(want) {
		t.Fatalf("expected outbox events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("outbox event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRepository_Outbox(t *testing.T) {
	repo := startTestRepo(t)
	ctx := context.Background()

	order := testOrder()
	if err := repo.Create(ctx, order); err != nil {
		t.Fatal(err)
	}

	records, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one unpublished record, got %d", len(records))
	}
	if records[0].Status != "NEW" || records[0].DedupeKey != order.BookingID+":created" {
		t.Errorf("expected NEW record keyed by booking id, got %+v", records[0])
	}

	age, err := repo.OldestUnpublishedAge(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if age <= 0 {
		t.Errorf("expected positive lag while unpublished, got %v", age)
	}

	if err := repo.MarkPublished(ctx, records[0].ID, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	records, err = repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected drained outbox, got %d records", len(records))
	}

	age, err = repo.OldestUnpublishedAge(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if age != 0 {
		t.Errorf("expected zero lag after publishing, got %v", age)
	}
}
