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
	ErrPartnerNotFound      = errors.New("partner not found")
	ErrPartnerAlreadyExists = errors.New("partner already exists")
)

const partnerColumns = `
	id, name, webhook_url, events_json, secret, status,
	description, contact_email,
	total_webhooks_sent, consecutive_failures, last_webhook_at,
	created_at, updated_at
`

type PartnerRepository struct {
	db DBTX
}

func NewPartnerRepository(db DBTX) *PartnerRepository {
	return &PartnerRepository{db: db}
}

func (r *PartnerRepository) Create(ctx context.Context, partner *entity.Partner) error {
	eventsJSON, err := serializeEvents(partner.Events)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO partners (
			id, name, webhook_url, events_json, secret, status,
			description, contact_email,
			total_webhooks_sent, consecutive_failures, last_webhook_at,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		partner.ID,
		partner.Name,
		partner.WebhookURL,
		eventsJSON,
		partner.Secret,
		partner.Status,
		nullableStringValue(partner.Description),
		nullableStringValue(partner.ContactEmail),
		partner.TotalWebhooksSent,
		partner.ConsecutiveFailures,
		nullableTimeValue(partner.LastWebhookAt),
		partner.CreatedAt,
		partner.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPartnerAlreadyExists
		}
		return err
	}

	return nil
}

func (r *PartnerRepository) Update(ctx context.Context, partner *entity.Partner) error {
	eventsJSON, err := serializeEvents(partner.Events)
	if err != nil {
		return err
	}

	query := `
		UPDATE partners SET
			name = ?,
			webhook_url = ?,
			events_json = ?,
			secret = ?,
			status = ?,
			description = ?,
			contact_email = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		partner.Name,
		partner.WebhookURL,
		eventsJSON,
		partner.Secret,
		partner.Status,
		nullableStringValue(partner.Description),
		nullableStringValue(partner.ContactEmail),
		partner.UpdatedAt,
		partner.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPartnerNotFound
	}

	return nil
}

func (r *PartnerRepository) FindByID(ctx context.Context, id string) (*entity.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = ?`

	partner := &entity.Partner{}
	if err := scanPartner(r.db.QueryRowContext(ctx, query, id), partner); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return partner, nil
}

func (r *PartnerRepository) List(ctx context.Context) ([]*entity.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners ORDER BY created_at ASC`
	return r.queryPartners(ctx, query)
}

func (r *PartnerRepository) ListActive(ctx context.Context) ([]*entity.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE status = ? ORDER BY created_at ASC`
	return r.queryPartners(ctx, query, types.PartnerStatusActive)
}

// RecordDeliverySuccess resets the failure streak in a single statement so
// concurrent dispatchers do not clobber each other's counters.
func (r *PartnerRepository) RecordDeliverySuccess(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE partners SET
			total_webhooks_sent = total_webhooks_sent + 1,
			consecutive_failures = 0,
			last_webhook_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPartnerNotFound
	}

	return nil
}

// RecordDeliveryFailure bumps the failure streak and suspends the partner
// once the streak reaches the threshold. The status assignment reads the
// pre-increment counter, hence the threshold - 1 comparison.
func (r *PartnerRepository) RecordDeliveryFailure(ctx context.Context, id string, threshold int32, now time.Time) error {
	if threshold <= 0 {
		threshold = entity.DefaultSuspendThreshold
	}

	query := `
		UPDATE partners SET
			status = IF(consecutive_failures >= ?, ?, status),
			consecutive_failures = consecutive_failures + 1,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, threshold-1, types.PartnerStatusSuspended, now, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPartnerNotFound
	}

	return nil
}

func (r *PartnerRepository) queryPartners(ctx context.Context, query string, args ...interface{}) ([]*entity.Partner, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	partners := make([]*entity.Partner, 0)
	for rows.Next() {
		item := &entity.Partner{}
		if err := scanPartner(rows, item); err != nil {
			return nil, err
		}
		partners = append(partners, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return partners, nil
}

func scanPartner(scan rowScanner, partner *entity.Partner) error {
	var eventsJSON string
	var description sql.NullString
	var contactEmail sql.NullString
	var lastWebhookAt sql.NullTime

	err := scan.Scan(
		&partner.ID,
		&partner.Name,
		&partner.WebhookURL,
		&eventsJSON,
		&partner.Secret,
		&partner.Status,
		&description,
		&contactEmail,
		&partner.TotalWebhooksSent,
		&partner.ConsecutiveFailures,
		&lastWebhookAt,
		&partner.CreatedAt,
		&partner.UpdatedAt,
	)
	if err != nil {
		return err
	}

	partner.Description = stringPtrFromNull(description)
	partner.ContactEmail = stringPtrFromNull(contactEmail)
	partner.LastWebhookAt = timePtrFromNull(lastWebhookAt)

	events, err := parseEvents(eventsJSON)
	if err != nil {
		return err
	}
	partner.Events = events

	return nil
}
