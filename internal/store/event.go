package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gnetorg/gnet/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := scanner.Scan(&e.ID, &e.Title, &e.StartsAt, &e.Venue, &e.Description, &e.ImageURL, &e.Link, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const eventCols = `id, title, starts_at, venue, description, image_url, link, created_at`

func (s *EventStore) Create(title string, startsAt time.Time, venue, description, imageURL, link string) (*model.Event, error) {
	result, err := s.db.Exec(
		`INSERT INTO events (title, starts_at, venue, description, image_url, link) VALUES (?, ?, ?, ?, ?, ?)`,
		title, startsAt.UTC(), venue, description, imageURL, link,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListUpcoming returns events that have not started yet, soonest first.
func (s *EventStore) ListUpcoming() ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT ` + eventCols + ` FROM events WHERE starts_at >= datetime('now') ORDER BY starts_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListBetween returns events starting in [from, to), used by the reminder
// scheduler.
func (s *EventStore) ListBetween(from, to time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events WHERE starts_at >= ? AND starts_at < ? ORDER BY starts_at ASC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list events between: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// NextUpcoming returns the soonest future event, or nil when none exists.
func (s *EventStore) NextUpcoming() (*model.Event, error) {
	row := s.db.QueryRow(
		`SELECT ` + eventCols + ` FROM events WHERE starts_at >= datetime('now') ORDER BY starts_at ASC LIMIT 1`,
	)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next event: %w", err)
	}
	return e, nil
}

func (s *EventStore) CountUpcoming() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE starts_at >= datetime('now')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count upcoming events: %w", err)
	}
	return n, nil
}

func (s *EventStore) Update(id int64, title string, startsAt time.Time, venue, description, imageURL, link string) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events SET title = ?, starts_at = ?, venue = ?, description = ?, image_url = ?, link = ? WHERE id = ?`,
		title, startsAt.UTC(), venue, description, imageURL, link, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
