package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CreateSystem registers a building system on a property.
func (s *Store) CreateSystem(ctx context.Context, sys *System) (*System, error) {
	if err := PrepareNewSystem(sys); err != nil {
		return nil, err
	}

	var year sql.NullInt64
	if sys.InstallYear != nil {
		year = sql.NullInt64{Int64: int64(*sys.InstallYear), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO systems (id, property_id, type, install_year, condition) VALUES (?, ?, ?, ?, ?)`,
		sys.ID, sys.PropertyID, sys.Type, year, sys.Condition,
	)
	if err != nil {
		return nil, fmt.Errorf("insert system: %w", err)
	}
	return sys, nil
}

// PrepareNewSystem checks a system and assigns its ID.
func PrepareNewSystem(sys *System) error {
	if sys.PropertyID == "" {
		return &FieldError{Field: "property_id"}
	}
	if sys.Type == "" {
		return &FieldError{Field: "type"}
	}
	if sys.ID == "" {
		sys.ID = uuid.NewString()
	}
	return nil
}

// ListSystems returns the systems of a property; "" lists all.
func (s *Store) ListSystems(ctx context.Context, propertyID string) ([]System, error) {
	query := `SELECT id, property_id, type, install_year, condition FROM systems`
	var args []any
	if propertyID != "" {
		query += ` WHERE property_id = ?`
		args = append(args, propertyID)
	}
	query += ` ORDER BY type, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query systems: %w", err)
	}
	defer rows.Close()

	var out []System
	for rows.Next() {
		var sys System
		var year sql.NullInt64
		if err := rows.Scan(&sys.ID, &sys.PropertyID, &sys.Type, &year, &sys.Condition); err != nil {
			return nil, fmt.Errorf("scan system: %w", err)
		}
		if year.Valid {
			y := int(year.Int64)
			sys.InstallYear = &y
		}
		out = append(out, sys)
	}
	return out, rows.Err()
}
