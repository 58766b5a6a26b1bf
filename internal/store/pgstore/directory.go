package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

// CreateProperty inserts a property and its units in one transaction.
func (s *Store) CreateProperty(ctx context.Context, p *store.Property) (*store.Property, error) {
	if err := store.PrepareNewProperty(p, s.now()); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO properties (id, name, door_count, climate_zone, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.DoorCount, p.ClimateZone, p.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}

	batch := &pgx.Batch{}
	for i, u := range p.Units {
		batch.Queue(`INSERT INTO units (property_id, position, id, nickname, floor, occupancy, bedrooms, bathrooms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, i, u.ID, u.Nickname, u.Floor, u.Occupancy, u.Bedrooms, u.Bathrooms)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("insert units: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

// GetProperty returns a property with its units normalized.
func (s *Store) GetProperty(ctx context.Context, id string) (*store.Property, error) {
	var p store.Property
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, door_count, climate_zone, created_at FROM properties WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.DoorCount, &p.ClimateZone, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", notFound(err, "property", id))
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
func (s *Store) ListProperties(ctx context.Context) ([]store.Property, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, door_count, climate_zone, created_at FROM properties ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	props, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Property, error) {
		var p store.Property
		err := row.Scan(&p.ID, &p.Name, &p.DoorCount, &p.ClimateZone, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan property: %w", err)
	}

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

func (s *Store) listUnits(ctx context.Context, propertyID string) ([]store.Unit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, nickname, floor, occupancy, bedrooms, bathrooms
		 FROM units WHERE property_id = $1 ORDER BY position`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	units, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Unit, error) {
		var u store.Unit
		err := row.Scan(&u.ID, &u.Nickname, &u.Floor, &u.Occupancy, &u.Bedrooms, &u.Bathrooms)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan unit: %w", err)
	}
	return units, nil
}

// CreateSystem registers a building system on a property.
func (s *Store) CreateSystem(ctx context.Context, sys *store.System) (*store.System, error) {
	if err := store.PrepareNewSystem(sys); err != nil {
		return nil, err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO systems (id, property_id, type, install_year, condition) VALUES ($1, $2, $3, $4, $5)`,
		sys.ID, sys.PropertyID, sys.Type, sys.InstallYear, sys.Condition)
	if err != nil {
		return nil, fmt.Errorf("create system: %w", err)
	}
	return sys, nil
}

// ListSystems returns the systems of a property; "" lists all.
func (s *Store) ListSystems(ctx context.Context, propertyID string) ([]store.System, error) {
	query := `SELECT id, property_id, type, install_year, condition FROM systems`
	var args []any
	if propertyID != "" {
		query += ` WHERE property_id = $1`
		args = append(args, propertyID)
	}
	query += ` ORDER BY type, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	systems, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.System, error) {
		var sys store.System
		err := row.Scan(&sys.ID, &sys.PropertyID, &sys.Type, &sys.InstallYear, &sys.Condition)
		return sys, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan system: %w", err)
	}
	return systems, nil
}
