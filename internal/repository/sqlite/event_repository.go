package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/repository"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NULL,
	date DATETIME NOT NULL,
	location TEXT NOT NULL,
	organizer_id INTEGER NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
CREATE INDEX IF NOT EXISTS idx_events_organizer ON events(organizer_id);
`

const selectEventColumns = `id, title, description, date, location, organizer_id, created_at, updated_at`

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) (int64, error) {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Date = event.Date.UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO events (title, description, date, location, organizer_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.Title,
		nullString(event.Description),
		event.Date,
		event.Location,
		event.OrganizerID,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: organizer does not exist", domain.ErrInvalidInput)
		}
		return 0, fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event last insert id: %w", err)
	}
	event.ID = id
	return id, nil
}

func (r *EventRepository) Update(ctx context.Context, event *domain.Event) error {
	event.UpdatedAt = time.Now().UTC()
	event.Date = event.Date.UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE events
SET title=?, description=?, date=?, location=?, updated_at=?
WHERE id=?`,
		event.Title,
		nullString(event.Description),
		event.Date,
		event.Location,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectAffected(res, "event")
}

// Delete removes the event; its RSVPs go with it through ON DELETE CASCADE.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectAffected(res, "event")
}

func (r *EventRepository) Get(ctx context.Context, id int64) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectEventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Upcoming {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		conditions = append(conditions, "date > ?")
		args = append(args, now.UTC())
	}
	if filter.OrganizerID > 0 {
		conditions = append(conditions, "organizer_id = ?")
		args = append(args, filter.OrganizerID)
	}

	query := `SELECT ` + selectEventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var (
		event       domain.Event
		description sql.NullString
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&description,
		&event.Date,
		&event.Location,
		&event.OrganizerID,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: event", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if description.Valid {
		event.Description = &description.String
	}
	return &event, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func expectAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, entity)
	}
	return nil
}
