package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/infinitops/infinitops/internal/model"
)

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

// CreateClient inserts a new client. The ID, CreatedAt, and UpdatedAt fields
// are populated after a successful insert.
func (s *Store) CreateClient(ctx context.Context, c *model.Client) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `INSERT INTO clients (name, contact_info, service_level, created_at, updated_at)
		VALUES (:name, :contact_info, :service_level, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get client id: %w", err)
	}
	c.ID = id
	return nil
}

// GetClient returns a client by ID.
func (s *Store) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	var c model.Client
	if err := s.db.GetContext(ctx, &c, "SELECT * FROM clients WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// ListClients returns all clients.
func (s *Store) ListClients(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := s.db.SelectContext(ctx, &clients, "SELECT * FROM clients ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// UpdateClient updates an existing client. The UpdatedAt field is refreshed
// automatically.
func (s *Store) UpdateClient(ctx context.Context, c *model.Client) error {
	c.UpdatedAt = time.Now().UTC()

	const q = `UPDATE clients SET
		name = :name, contact_info = :contact_info, service_level = :service_level,
		updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update client rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient removes a client by ID.
func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete client rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tickets
// ---------------------------------------------------------------------------

// CreateTicket inserts a new ticket. The ID, CreatedAt, and UpdatedAt fields
// are populated after a successful insert.
func (s *Store) CreateTicket(ctx context.Context, t *model.Ticket) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	const q = `INSERT INTO tickets
		(title, description, status, priority, client_id, assignee_id, sla_expiration, created_at, updated_at)
		VALUES
		(:title, :description, :status, :priority, :client_id, :assignee_id, :sla_expiration, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, t)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get ticket id: %w", err)
	}
	t.ID = id
	return nil
}

// GetTicket returns a ticket by ID.
func (s *Store) GetTicket(ctx context.Context, id int64) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.GetContext(ctx, &t, "SELECT * FROM tickets WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return &t, nil
}

// ListTickets returns all tickets, optionally filtered by status.
func (s *Store) ListTickets(ctx context.Context, status string) ([]model.Ticket, error) {
	var tickets []model.Ticket
	var err error
	if status != "" {
		err = s.db.SelectContext(ctx, &tickets,
			"SELECT * FROM tickets WHERE status = ? ORDER BY created_at DESC", status)
	} else {
		err = s.db.SelectContext(ctx, &tickets,
			"SELECT * FROM tickets ORDER BY created_at DESC")
	}
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// UpdateTicket updates an existing ticket. The UpdatedAt field is refreshed
// automatically.
func (s *Store) UpdateTicket(ctx context.Context, t *model.Ticket) error {
	t.UpdatedAt = time.Now().UTC()

	const q = `UPDATE tickets SET
		title = :title, description = :description, status = :status,
		priority = :priority, client_id = :client_id, assignee_id = :assignee_id,
		sla_expiration = :sla_expiration, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, t)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ticket rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTicket removes a ticket by ID.
func (s *Store) DeleteTicket(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tickets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ticket rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Alerts
// ---------------------------------------------------------------------------

// CreateAlert inserts a new alert. The ID and CreatedAt fields are populated
// after a successful insert.
func (s *Store) CreateAlert(ctx context.Context, a *model.Alert) error {
	a.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO alerts (title, description, severity, status, created_at)
		VALUES (:title, :description, :severity, :status, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get alert id: %w", err)
	}
	a.ID = id
	return nil
}

// GetAlert returns an alert by ID.
func (s *Store) GetAlert(ctx context.Context, id int64) (*model.Alert, error) {
	var a model.Alert
	if err := s.db.GetContext(ctx, &a, "SELECT * FROM alerts WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return &a, nil
}

// ListAlerts returns all alerts, newest first.
func (s *Store) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	var alerts []model.Alert
	if err := s.db.SelectContext(ctx, &alerts, "SELECT * FROM alerts ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// AcknowledgeAlert records which user acknowledged the alert and when.
// Re-acknowledging an already acknowledged alert is rejected with
// ErrDuplicate.
func (s *Store) AcknowledgeAlert(ctx context.Context, id, userID int64) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = 'acknowledged', acknowledged_at = ?, acknowledged_by = ?
		WHERE id = ? AND acknowledged_at IS NULL`, now, userID, id)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("acknowledge alert rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish missing alert from already-acknowledged.
		if _, err := s.GetAlert(ctx, id); err != nil {
			return err
		}
		return ErrDuplicate
	}
	return nil
}
