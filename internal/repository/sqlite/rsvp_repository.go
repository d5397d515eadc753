package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/repository"
)

const createRSVPsTable = `
CREATE TABLE IF NOT EXISTS rsvps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (user_id, event_id)
);
CREATE INDEX IF NOT EXISTS idx_rsvps_event ON rsvps(event_id);
`

type RSVPRepository struct {
	db *sql.DB
}

func NewRSVPRepository(db *sql.DB) repository.RSVPRepository {
	return &RSVPRepository{db: db}
}

func (r *RSVPRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRSVPsTable); err != nil {
		return fmt.Errorf("create rsvps table: %w", err)
	}
	return nil
}

func (r *RSVPRepository) Upsert(ctx context.Context, rsvp *domain.RSVP) error {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
INSERT INTO rsvps (user_id, event_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, event_id) DO UPDATE
SET status = excluded.status, updated_at = excluded.updated_at
RETURNING id`,
		rsvp.UserID,
		rsvp.EventID,
		string(rsvp.Status),
		now,
		now,
	)
	if err := row.Scan(&rsvp.ID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: event", domain.ErrNotFound)
		}
		return fmt.Errorf("upsert rsvp: %w", err)
	}

	stored, err := r.Get(ctx, rsvp.ID)
	if err != nil {
		return err
	}
	*rsvp = *stored
	return nil
}

func (r *RSVPRepository) Get(ctx context.Context, id int64) (*domain.RSVP, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, event_id, status, created_at, updated_at
FROM rsvps
WHERE id = ?`,
		id,
	)
	return scanRSVP(row)
}

func (r *RSVPRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rsvps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rsvp: %w", err)
	}
	return expectAffected(res, "rsvp")
}

func (r *RSVPRepository) ListByEvent(ctx context.Context, eventID int64) ([]domain.RSVP, error) {
	return r.list(ctx, `
SELECT id, user_id, event_id, status, created_at, updated_at
FROM rsvps
WHERE event_id = ?
ORDER BY id ASC`, eventID)
}

func (r *RSVPRepository) ListByUser(ctx context.Context, userID int64) ([]domain.RSVP, error) {
	return r.list(ctx, `
SELECT id, user_id, event_id, status, created_at, updated_at
FROM rsvps
WHERE user_id = ?
ORDER BY updated_at DESC, id DESC`, userID)
}

func (r *RSVPRepository) Attendees(ctx context.Context, eventID int64) ([]domain.Attendee, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT u.id, u.name, u.email, r.status
FROM rsvps r
JOIN users u ON u.id = r.user_id
WHERE r.event_id = ? AND r.status IN (?, ?)
ORDER BY r.id ASC`,
		eventID,
		string(domain.RSVPGoing),
		string(domain.RSVPMaybe),
	)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []domain.Attendee
	for rows.Next() {
		var (
			a      domain.Attendee
			status string
		)
		if err := rows.Scan(&a.UserID, &a.Name, &a.Email, &status); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		a.Status = domain.RSVPStatus(status)
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendees: %w", err)
	}
	return attendees, nil
}

func (r *RSVPRepository) list(ctx context.Context, query string, arg int64) ([]domain.RSVP, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	defer rows.Close()

	var rsvps []domain.RSVP
	for rows.Next() {
		rsvp, err := scanRSVP(rows)
		if err != nil {
			return nil, err
		}
		rsvps = append(rsvps, *rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rsvps: %w", err)
	}
	return rsvps, nil
}

func scanRSVP(row rowScanner) (*domain.RSVP, error) {
	var (
		rsvp   domain.RSVP
		status string
	)
	if err := row.Scan(
		&rsvp.ID,
		&rsvp.UserID,
		&rsvp.EventID,
		&status,
		&rsvp.CreatedAt,
		&rsvp.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: rsvp", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan rsvp: %w", err)
	}
	rsvp.Status = domain.RSVPStatus(status)
	return &rsvp, nil
}
