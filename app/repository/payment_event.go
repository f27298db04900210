package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (
			payment_id, event_type, old_status, new_status,
			provider_event_id, payload_json, disposition, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var oldStatus interface{}
	if event.OldStatus != nil {
		oldStatus = *event.OldStatus
	}

	result, err := r.db.ExecContext(ctx, query,
		event.PaymentID,
		event.EventType,
		oldStatus,
		event.NewStatus,
		nullableStringValue(event.ProviderEventID),
		nullableStringValue(event.PayloadJSON),
		event.Disposition,
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *PaymentEventRepository) ListByPaymentID(ctx context.Context, paymentID string) ([]*entity.PaymentEvent, error) {
	query := `
		SELECT id, payment_id, event_type, old_status, new_status,
			provider_event_id, payload_json, disposition, created_at
		FROM payment_events
		WHERE payment_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.PaymentEvent, 0)
	for rows.Next() {
		item := &entity.PaymentEvent{}
		var oldStatus sql.NullString
		var providerEventID sql.NullString
		var payloadJSON sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.PaymentID,
			&item.EventType,
			&oldStatus,
			&item.NewStatus,
			&providerEventID,
			&payloadJSON,
			&item.Disposition,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if oldStatus.Valid {
			status := types.PaymentStatus(oldStatus.String)
			item.OldStatus = &status
		}
		item.ProviderEventID = stringPtrFromNull(providerEventID)
		item.PayloadJSON = stringPtrFromNull(payloadJSON)

		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
