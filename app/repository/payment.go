package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

const paymentColumns = `
	id, amount, currency, status, payment_type,
	reservation_id, subscription_id, user_id,
	provider, provider_payment_id, checkout_url,
	payer_email, payer_name, description, metadata_json,
	idempotency_key, failure_reason,
	created_at, updated_at
`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	metadataJSON, err := serializeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id, amount, currency, status, payment_type,
			reservation_id, subscription_id, user_id,
			provider, provider_payment_id, checkout_url,
			payer_email, payer_name, description, metadata_json,
			idempotency_key, failure_reason,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		payment.ID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.PaymentType,
		nullableStringValue(payment.ReservationID),
		nullableStringValue(payment.SubscriptionID),
		nullableStringValue(payment.UserID),
		payment.Provider,
		nullableStringValue(payment.ProviderPaymentID),
		nullableStringValue(payment.CheckoutURL),
		nullableStringValue(payment.PayerEmail),
		nullableStringValue(payment.PayerName),
		nullableStringValue(payment.Description),
		metadataJSON,
		nullableStringValue(payment.IdempotencyKey),
		nullableStringValue(payment.FailureReason),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	metadataJSON, err := serializeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE payments SET
			status = ?,
			provider_payment_id = ?,
			checkout_url = ?,
			payer_email = ?,
			payer_name = ?,
			description = ?,
			metadata_json = ?,
			failure_reason = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.Status,
		nullableStringValue(payment.ProviderPaymentID),
		nullableStringValue(payment.CheckoutURL),
		nullableStringValue(payment.PayerEmail),
		nullableStringValue(payment.PayerName),
		nullableStringValue(payment.Description),
		metadataJSON,
		nullableStringValue(payment.FailureReason),
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, id), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = ? LIMIT 1`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, key), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *PaymentRepository) FindByProviderPaymentID(ctx context.Context, provider, providerPaymentID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider = ? AND provider_payment_id = ? LIMIT 1`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, provider, providerPaymentID), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *PaymentRepository) ListByReservationID(ctx context.Context, reservationID string) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *PaymentRepository) ListStaleProcessing(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status IN (?, ?)
		  AND provider_payment_id IS NOT NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, types.PaymentStatusPending, types.PaymentStatusProcessing, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var reservationID sql.NullString
	var subscriptionID sql.NullString
	var userID sql.NullString
	var providerPaymentID sql.NullString
	var checkoutURL sql.NullString
	var payerEmail sql.NullString
	var payerName sql.NullString
	var description sql.NullString
	var metadataJSON string
	var idempotencyKey sql.NullString
	var failureReason sql.NullString

	err := scan.Scan(
		&payment.ID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.PaymentType,
		&reservationID,
		&subscriptionID,
		&userID,
		&payment.Provider,
		&providerPaymentID,
		&checkoutURL,
		&payerEmail,
		&payerName,
		&description,
		&metadataJSON,
		&idempotencyKey,
		&failureReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.ReservationID = stringPtrFromNull(reservationID)
	payment.SubscriptionID = stringPtrFromNull(subscriptionID)
	payment.UserID = stringPtrFromNull(userID)
	payment.ProviderPaymentID = stringPtrFromNull(providerPaymentID)
	payment.CheckoutURL = stringPtrFromNull(checkoutURL)
	payment.PayerEmail = stringPtrFromNull(payerEmail)
	payment.PayerName = stringPtrFromNull(payerName)
	payment.Description = stringPtrFromNull(description)
	payment.IdempotencyKey = stringPtrFromNull(idempotencyKey)
	payment.FailureReason = stringPtrFromNull(failureReason)

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}
	payment.Metadata = metadata

	return nil
}
