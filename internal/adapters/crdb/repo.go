package crdb

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

const orderColumns = `
	id, booking_id, devotee_id, pooja_id, temple_id, pandit_id,
	pooja_name, temple_name, pooja_date, devotee_name, gotra, phone, wish, address,
	base_amount, addon_amount, total_amount,
	payment_status, fulfillment_status, proof_url, completed_at,
	gateway_order_id, gateway_payment_id, gateway_signature,
	created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

// Create persists a new order, its add-on snapshots and an order.created
// outbox record in one serializable transaction. A unique violation on
// booking_id maps to ErrDuplicateBookingID so the verifier can re-allocate;
// one on gateway_order_id maps to ErrConflict so a concurrent duplicate
// verification can fall back to the already-created order.
func (r *Repository) Create(ctx context.Context, order domain.Order) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (
				id, booking_id, devotee_id, pooja_id, temple_id, pandit_id,
				pooja_name, temple_name, pooja_date, devotee_name, gotra, phone, wish, address,
				base_amount, addon_amount, total_amount,
				payment_status, fulfillment_status, proof_url, completed_at,
				gateway_order_id, gateway_payment_id, gateway_signature,
				created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17,
				$18, $19, $20, $21,
				$22, $23, $24,
				$25, $26
			)
		`,
			order.ID, order.BookingID, order.DevoteeID, order.PoojaID, order.TempleID, order.PanditID,
			order.PoojaName, order.TempleName, order.PoojaDate, order.DevoteeName, order.Gotra, order.Phone, order.Wish, order.Address,
			order.BaseAmount, order.AddOnAmount, order.TotalAmount,
			order.PaymentStatus, order.FulfillmentStatus, order.ProofURL, order.CompletedAt,
			order.GatewayOrderID, order.GatewayPaymentID, order.GatewaySignature,
			order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return classifyUnique(err)
		}

		// pgx.Tx is a single connection; add-ons go in one at a time.
		for _, item := range order.AddOns {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_addons (order_id, chadhava_id, name, price, icon)
				VALUES ($1, $2, $3, $4, $5)
			`, order.ID, item.ChadhavaID, item.Name, item.Price, item.Icon)
			if err != nil {
				return err
			}
		}

		payload := orderEventPayload(order)
		return insertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     "order.created",
			Payload:       payload,
			DedupeKey:     order.BookingID + ":created",
		})
	})
}

func classifyUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode {
		switch pgErr.ConstraintName {
		case "orders_booking_id_key":
			return domain.ErrDuplicateBookingID
		case "orders_gateway_order_id_key":
			return domain.ErrConflict
		}
		return domain.ErrConflict
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	return r.scanWithAddOns(ctx, row)
}

func (r *Repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID)
	return r.scanWithAddOns(ctx, row)
}

// transitionTx runs a conditional fulfillment update and the outbox record
// for its event in one serializable transaction, so a committed transition is
// never lost to a broker outage. Zero updated rows rolls back without an
// outbox record and means the order moved under us (ErrConflict) or does not
// exist (ErrNotFound).
func (r *Repository) transitionTx(ctx context.Context, orderID uuid.UUID, eventType string, update func(tx pgx.Tx) pgx.Row) (*domain.Order, error) {
	var order *domain.Order
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		updated, err := scanOrder(update(tx))
		if err != nil {
			return err
		}
		if err := r.InsertOutbox(ctx, tx, transitionRecord(*updated, eventType)); err != nil {
			return err
		}
		order = updated
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, r.missOrConflict(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	return r.attachAddOns(ctx, order)
}

// UpdateTransition applies a fulfillment status change as a single
// conditional update: the expected status is part of the WHERE clause, so a
// concurrent writer can never turn the check and the write into a lost
// update.
func (r *Repository) UpdateTransition(ctx context.Context, orderID uuid.UUID, expected, next domain.FulfillmentStatus) (*domain.Order, error) {
	event := "order." + strings.ToLower(string(next))
	return r.transitionTx(ctx, orderID, event, func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx, `
			UPDATE orders SET fulfillment_status = $3, updated_at = now()
			WHERE id = $1 AND fulfillment_status = $2
			RETURNING `+orderColumns,
			orderID, expected, next)
	})
}

// AssignPandit binds the pandit and moves the order to next (CONFIRMED for a
// first assignment, unchanged for a reassignment) in one statement. The paid
// guard lives in the WHERE clause as well.
func (r *Repository) AssignPandit(ctx context.Context, orderID, panditID uuid.UUID, expected, next domain.FulfillmentStatus) (*domain.Order, error) {
	event := "order." + strings.ToLower(string(next))
	if expected == next {
		event = "order.reassigned"
	}
	return r.transitionTx(ctx, orderID, event, func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx, `
			UPDATE orders SET pandit_id = $2, fulfillment_status = $4, updated_at = now()
			WHERE id = $1 AND fulfillment_status = $3 AND payment_status = $5
			RETURNING `+orderColumns,
			orderID, panditID, expected, next, domain.PaymentPaid)
	})
}

// UnassignPandit clears the pandit and forces the order back into the
// assignment pool.
func (r *Repository) UnassignPandit(ctx context.Context, orderID uuid.UUID, expected domain.FulfillmentStatus) (*domain.Order, error) {
	return r.transitionTx(ctx, orderID, "order.unassigned", func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx, `
			UPDATE orders SET pandit_id = NULL, fulfillment_status = $3, updated_at = now()
			WHERE id = $1 AND fulfillment_status = $2
			RETURNING `+orderColumns,
			orderID, expected, domain.FulfillmentPending)
	})
}

// AttachProof completes the order. The IN_PROGRESS requirement is part of
// the update itself, so two concurrent completions cannot both succeed.
func (r *Repository) AttachProof(ctx context.Context, orderID uuid.UUID, proofURL string, completedAt time.Time) (*domain.Order, error) {
	return r.transitionTx(ctx, orderID, "order.completed", func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx, `
			UPDATE orders SET proof_url = $2, completed_at = $3, fulfillment_status = $4, updated_at = now()
			WHERE id = $1 AND fulfillment_status = $5
			RETURNING `+orderColumns,
			orderID, proofURL, completedAt, domain.FulfillmentCompleted, domain.FulfillmentInProgress)
	})
}

// ListUnassigned returns paid orders awaiting a pandit, oldest first.
func (r *Repository) ListUnassigned(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_status = $1 AND fulfillment_status = $2
		ORDER BY created_at ASC
	`, domain.PaymentPaid, domain.FulfillmentPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if _, err := r.attachAddOns(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) missOrConflict(ctx context.Context, orderID uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrConflict
	}
	return domain.ErrNotFound
}

func (r *Repository) scanWithAddOns(ctx context.Context, row pgx.Row) (*domain.Order, error) {
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	return r.attachAddOns(ctx, order)
}

func (r *Repository) attachAddOns(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT chadhava_id, name, price, icon
		FROM order_addons WHERE order_id = $1
	`, order.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.AddOnItem
		if err := rows.Scan(&item.ChadhavaID, &item.Name, &item.Price, &item.Icon); err != nil {
			return nil, err
		}
		order.AddOns = append(order.AddOns, item)
	}
	return order, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.BookingID, &order.DevoteeID, &order.PoojaID, &order.TempleID, &order.PanditID,
		&order.PoojaName, &order.TempleName, &order.PoojaDate, &order.DevoteeName, &order.Gotra, &order.Phone, &order.Wish, &order.Address,
		&order.BaseAmount, &order.AddOnAmount, &order.TotalAmount,
		&order.PaymentStatus, &order.FulfillmentStatus, &order.ProofURL, &order.CompletedAt,
		&order.GatewayOrderID, &order.GatewayPaymentID, &order.GatewaySignature,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
