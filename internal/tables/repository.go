package tables

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nerrad567/mc-connect-core/internal/render"
)

// Assignment binds a display to a table.
type Assignment struct {
	TableID  string          `json:"table_id"`
	DeviceID string          `json:"device_id"`
	Balance  decimal.Decimal `json:"balance"`
	Help     bool            `json:"help"`
}

// MenuItem is one row of the menu.
type MenuItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Destination string          `json:"destination"`
	Price       decimal.Decimal `json:"price"`
}

// Promotion returns the rotation entry for the item, e.g.
// "Fish Tacos for $12.50".
func (m MenuItem) Promotion() render.Promotion {
	return render.Promotion{
		Title:       m.Name + " for $" + render.FormatAmount(m.Price),
		Description: m.Description,
	}
}

// Repository defines the interface for table state operations.
type Repository interface {
	GetBalance(ctx context.Context, deviceID string) (decimal.Decimal, error)
	GetAssignment(ctx context.Context, deviceID string) (*Assignment, error)
	ListAssignments(ctx context.Context) ([]Assignment, error)
	CreateAssignment(ctx context.Context, a *Assignment) error
	DeleteAssignment(ctx context.Context, deviceID string) error
	SetHelp(ctx context.Context, deviceID string, help bool) error
	ListMenu(ctx context.Context) ([]MenuItem, error)
	ListPromotions(ctx context.Context) ([]render.Promotion, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed table repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetBalance returns the balance of the table the device is mounted at.
func (r *SQLiteRepository) GetBalance(ctx context.Context, deviceID string) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT balance FROM table_info WHERE device_id = ?", deviceID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrAssignmentNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("querying balance for %s: %w", deviceID, err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing balance %q for %s: %w", raw, deviceID, err)
	}
	return balance, nil
}

// GetAssignment returns the assignment for deviceID.
func (r *SQLiteRepository) GetAssignment(ctx context.Context, deviceID string) (*Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT table_id, device_id, balance, help FROM table_info WHERE device_id = ?", deviceID,
	)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying assignment for %s: %w", deviceID, err)
	}
	return a, nil
}

// ListAssignments returns every table with a display, ordered by table ID.
func (r *SQLiteRepository) ListAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_id, device_id, balance, help FROM table_info
		 WHERE device_id IS NOT NULL AND device_id != ''
		 ORDER BY table_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	return out, nil
}

// CreateAssignment binds a.DeviceID to a.TableID with a zero balance. An
// existing table row without a display is claimed rather than duplicated.
func (r *SQLiteRepository) CreateAssignment(ctx context.Context, a *Assignment) error {
	if strings.TrimSpace(a.TableID) == "" || strings.TrimSpace(a.DeviceID) == "" {
		return ErrInvalidAssignment
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO table_info (table_id, device_id, balance, help) VALUES (?, ?, '0.00', 0)
		 ON CONFLICT(table_id) DO UPDATE SET
		     device_id = excluded.device_id,
		     updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE table_info.device_id IS NULL OR table_info.device_id = ''`,
		a.TableID, a.DeviceID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: device %s", ErrAssignmentExists, a.DeviceID)
		}
		return fmt.Errorf("inserting assignment %s: %w", a.TableID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking insert result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: table %s", ErrAssignmentExists, a.TableID)
	}

	created, err := r.GetAssignment(ctx, a.DeviceID)
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

// DeleteAssignment removes the table row bound to deviceID.
func (r *SQLiteRepository) DeleteAssignment(ctx context.Context, deviceID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM table_info WHERE device_id = ?", deviceID)
	if err != nil {
		return fmt.Errorf("deleting assignment %s: %w", deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// SetHelp records whether the table at deviceID has asked for staff.
func (r *SQLiteRepository) SetHelp(ctx context.Context, deviceID string, help bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE table_info SET help = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE device_id = ?`,
		boolToInt(help), deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating help flag for %s: %w", deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// ListMenu returns the menu in insertion order.
func (r *SQLiteRepository) ListMenu(ctx context.Context) ([]MenuItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT item_id, name, description, destination, price FROM menu ORDER BY item_id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying menu: %w", err)
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		var price string
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Destination, &price); err != nil {
			return nil, fmt.Errorf("scanning menu item: %w", err)
		}
		if m.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing price %q of item %d: %w", price, m.ID, err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating menu: %w", err)
	}
	return items, nil
}

// ListPromotions returns the menu as promotion rotation entries.
func (r *SQLiteRepository) ListPromotions(ctx context.Context) ([]render.Promotion, error) {
	items, err := r.ListMenu(ctx)
	if err != nil {
		return nil, err
	}
	promos := make([]render.Promotion, 0, len(items))
	for _, m := range items {
		promos = append(promos, m.Promotion())
	}
	return promos, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssignment(s scanner) (*Assignment, error) {
	var a Assignment
	var balance string
	var help int
	if err := s.Scan(&a.TableID, &a.DeviceID, &balance, &help); err != nil {
		return nil, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parsing balance %q: %w", balance, err)
	}
	a.Balance = b
	a.Help = help != 0
	return &a, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
