package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sevasangam/puja-bookings/internal/domain"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func orderEventPayload(order domain.Order) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"order_id":           order.ID,
		"booking_id":         order.BookingID,
		"pandit_id":          order.PanditID,
		"payment_status":     order.PaymentStatus,
		"fulfillment_status": order.FulfillmentStatus,
		"total_amount":       order.TotalAmount,
	})
	return payload
}

// transitionRecord builds the outbox record for a committed status change.
// The dedupe key carries the record id because the same logical event (a
// re-confirmation after an unassign, say) can legitimately occur twice.
func transitionRecord(order domain.Order, eventType string) OutboxRecord {
	id := uuid.New()
	return OutboxRecord{
		ID:            id,
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       orderEventPayload(order),
		DedupeKey:     eventType + ":" + id.String(),
	}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.DedupeKey)
	return err
}

// InsertOutbox records an event in the same transaction as the state change
// it describes.
func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	return insertOutbox(ctx, tx, record)
}

func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}

func (r *Repository) OldestUnpublishedAge(ctx context.Context, now time.Time) (time.Duration, error) {
	var createdAt *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT min(created_at) FROM outbox WHERE status = 'NEW'
	`).Scan(&createdAt)
	if err != nil {
		return 0, err
	}
	if createdAt == nil {
		return 0, nil
	}
	return now.Sub(*createdAt), nil
}
