package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateProperty inserts a property and its explicit unit list in one
// transaction.
func (s *Store) CreateProperty(ctx context.Context, p *Property) (*Property, error) {
	if err := PrepareNewProperty(p, s.now()); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO properties (id, name, door_count, climate_zone, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.DoorCount, p.ClimateZone, p.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}

	for i, u := range p.Units {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO units (property_id, position, id, nickname, floor, occupancy, bedrooms, bathrooms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i, u.ID, u.Nickname, u.Floor, u.Occupancy, u.Bedrooms, u.Bathrooms,
		); err != nil {
			return nil, fmt.Errorf("insert unit %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

// PrepareNewProperty checks a property and fills the defaults every backend
// applies on create: a UUID, a door count of at least one that agrees
// with an explicit unit list, and unit IDs. Unit tags must be unique.
func PrepareNewProperty(p *Property, now time.Time) error {
	if p.Name == "" {
		return &FieldError{Field: "name"}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.DoorCount < 1 {
		p.DoorCount = 1
	}
	if len(p.Units) > 0 {
		p.DoorCount = len(p.Units)
	}
	for i := range p.Units {
		if p.Units[i].ID == "" {
			p.Units[i].ID = fmt.Sprintf("unit-%d", i+1)
		}
	}
	if tag, dup := DuplicateUnitTag(p.Units); dup {
		return fmt.Errorf("%w: %q", ErrDuplicateUnit, tag)
	}
	p.CreatedAt = now.UTC()
	return nil
}

// GetProperty returns a property with its units normalized.
func (s *Store) GetProperty(ctx context.Context, id string) (*Property, error) {
	var p Property
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, door_count, climate_zone, created_at FROM properties WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.DoorCount, &p.ClimateZone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}

	units, err := s.listUnits(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Units = units
	p.NormalizeUnits()
	return &p, nil
}

// ListProperties returns all properties by name, units normalized.
func (s *Store) ListProperties(ctx context.Context) ([]Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, door_count, climate_zone, created_at FROM properties ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	var props []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.ID, &p.Name, &p.DoorCount, &p.ClimateZone, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Units are loaded after the cursor is closed: the pool holds one connection.
	for i := range props {
		units, err := s.listUnits(ctx, props[i].ID)
		if err != nil {
			return nil, err
		}
		props[i].Units = units
		props[i].NormalizeUnits()
	}
	return props, nil
}

func (s *Store) listUnits(ctx context.Context, propertyID string) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nickname, floor, occupancy, bedrooms, bathrooms
		 FROM units WHERE property_id = ? ORDER BY position`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Nickname, &u.Floor, &u.Occupancy, &u.Bedrooms, &u.Bathrooms); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
