package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/database"
)

// PostgresIncidentRepository implements IncidentRepository using PostgreSQL
type PostgresIncidentRepository struct {
	db database.Querier
}

// NewPostgresIncidentRepository creates a new PostgreSQL incident repository
func NewPostgresIncidentRepository(db database.Querier) *PostgresIncidentRepository {
	return &PostgresIncidentRepository{db: db}
}

const incidentColumns = `
	id, event_id, booking_id, booking_number, user_id, payment_intent_id,
	amount, message, status, occurred_at, created_at
`

// Record inserts the incident; a replayed event is a no-op
func (r *PostgresIncidentRepository) Record(ctx context.Context, incident *domain.PaymentIncident) (bool, error) {
	query := `
		INSERT INTO payment_incidents (` + incidentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		incident.ID,
		incident.EventID,
		incident.BookingID,
		nullString(incident.BookingNumber),
		nullString(incident.UserID),
		incident.PaymentIntentID,
		incident.Amount,
		incident.Message,
		incident.Status,
		incident.OccurredAt,
		incident.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record incident: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves an incident by its ID
func (r *PostgresIncidentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentIncident, error) {
	query := `SELECT ` + incidentColumns + ` FROM payment_incidents WHERE id = $1`
	return scanIncident(r.db.QueryRow(ctx, query, id))
}

// ListOpen returns unresolved incidents, oldest first
func (r *PostgresIncidentRepository) ListOpen(ctx context.Context, limit, offset int) ([]*domain.PaymentIncident, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + incidentColumns + ` FROM payment_incidents
		WHERE status = $1
		ORDER BY occurred_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, domain.IncidentOpen, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*domain.PaymentIncident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incidents: %w", err)
	}
	return incidents, nil
}

// Resolve marks an incident as handled
func (r *PostgresIncidentRepository) Resolve(ctx context.Context, id string) error {
	query := `UPDATE payment_incidents SET status = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, domain.IncidentResolved)
	if err != nil {
		return fmt.Errorf("failed to resolve incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIncidentNotFound
	}
	return nil
}

func scanIncident(row pgx.Row) (*domain.PaymentIncident, error) {
	var (
		incident      domain.PaymentIncident
		bookingNumber *string
		userID        *string
	)
	err := row.Scan(
		&incident.ID,
		&incident.EventID,
		&incident.BookingID,
		&bookingNumber,
		&userID,
		&incident.PaymentIntentID,
		&incident.Amount,
		&incident.Message,
		&incident.Status,
		&incident.OccurredAt,
		&incident.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to scan incident: %w", err)
	}
	if bookingNumber != nil {
		incident.BookingNumber = *bookingNumber
	}
	if userID != nil {
		incident.UserID = *userID
	}
	return &incident, nil
}

// nullString returns nil if string is empty, otherwise returns pointer to string
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
