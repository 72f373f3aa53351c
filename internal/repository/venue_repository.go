package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/expo-access/internal/model"
)

// VenueRepo provides access to venue_areas, booth_positions and
// venue_facilities.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a VenueRepo bound to db.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// CreateArea inserts a venue area.
func (r *VenueRepo) CreateArea(ctx context.Context, a *model.VenueArea) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO venue_areas (area_name, area_description, area_type, capacity, width_meters, height_meters, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Description, a.AreaType, a.Capacity, a.WidthMeters, a.HeightMeters, a.IsActive, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.CreatedAt = now
	return nil
}

// ListAreas returns all areas ordered by name.
func (r *VenueRepo) ListAreas(ctx context.Context) ([]model.VenueArea, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, area_name, area_description, area_type, capacity, width_meters, height_meters, is_active, created_at
		 FROM venue_areas ORDER BY area_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VenueArea{}
	for rows.Next() {
		var (
			a    model.VenueArea
			desc sql.NullString
			w, h sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.Name, &desc, &a.AreaType, &a.Capacity, &w, &h, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			a.Description = &desc.String
		}
		if w.Valid {
			a.WidthMeters = &w.Float64
		}
		if h.Valid {
			a.HeightMeters = &h.Float64
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateBooth inserts a booth position.  A booth number already used in
// the same area yields ErrConflict; an unknown area is reported by the
// foreign key as a generic error and checked by the service beforehand.
func (r *VenueRepo) CreateBooth(ctx context.Context, b *model.BoothPosition) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO booth_positions (venue_area_id, booth_number, position_x, position_y, width_meters, height_meters,
		                              booth_type, has_power, has_internet, has_water, price_per_day, is_available, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.VenueAreaID, b.BoothNumber, b.PositionX, b.PositionY, b.WidthMeters, b.HeightMeters,
		string(b.BoothType), b.HasPower, b.HasInternet, b.HasWater, b.PricePerDay, b.IsAvailable, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt = now
	return nil
}

// AreaExists reports whether a venue area with id exists.
func (r *VenueRepo) AreaExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM venue_areas WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

const boothSelect = `SELECT b.id, b.venue_area_id, a.area_name, b.booth_number, b.position_x, b.position_y,
                            b.width_meters, b.height_meters, b.booth_type, b.has_power, b.has_internet,
                            b.has_water, b.price_per_day, b.is_available, b.created_at
                     FROM booth_positions b
                     JOIN venue_areas a ON a.id = b.venue_area_id`

// ListBooths returns every booth ordered by area and number.  When areaID
// is non-zero only booths of that area are returned.
func (r *VenueRepo) ListBooths(ctx context.Context, areaID uint64) ([]model.BoothPosition, error) {
	q := boothSelect
	var args []interface{}
	if areaID != 0 {
		q += ` WHERE b.venue_area_id = ?`
		args = append(args, areaID)
	}
	q += ` ORDER BY a.area_name, b.booth_number`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BoothPosition{}
	for rows.Next() {
		b, err := scanBooth(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// GetBooth returns a booth by id or ErrNotFound.
func (r *VenueRepo) GetBooth(ctx context.Context, id uint64) (*model.BoothPosition, error) {
	b, err := scanBooth(r.db.QueryRowContext(ctx, boothSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// LockBoothTx reads the booth row with FOR UPDATE so that concurrent
// assignment attempts on the same booth serialize on it.  It returns the
// availability flag or ErrNotFound.
func (r *VenueRepo) LockBoothTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	var available bool
	err := tx.QueryRowContext(ctx, `SELECT is_available FROM booth_positions WHERE id = ? FOR UPDATE`, id).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return available, err
}

// SetBoothAvailability toggles the manual availability flag.
func (r *VenueRepo) SetBoothAvailability(ctx context.Context, id uint64, available bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE booth_positions SET is_available = ? WHERE id = ?`, available, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateFacility inserts a venue facility.
func (r *VenueRepo) CreateFacility(ctx context.Context, f *model.VenueFacility) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO venue_facilities (venue_area_id, facility_name, facility_type, position_x, position_y,
		                               description, is_accessible, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.VenueAreaID, f.Name, f.FacilityType, f.PositionX, f.PositionY, f.Description, f.IsAccessible, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	f.CreatedAt = now
	return nil
}

// ListFacilities returns facilities ordered by name, limited to one area
// when areaID is non-zero.
func (r *VenueRepo) ListFacilities(ctx context.Context, areaID uint64) ([]model.VenueFacility, error) {
	q := `SELECT f.id, f.venue_area_id, a.area_name, f.facility_name, f.facility_type, f.position_x, f.position_y,
	             f.description, f.is_accessible, f.created_at
	      FROM venue_facilities f
	      JOIN venue_areas a ON a.id = f.venue_area_id`
	var args []interface{}
	if areaID != 0 {
		q += ` WHERE f.venue_area_id = ?`
		args = append(args, areaID)
	}
	q += ` ORDER BY f.facility_name, f.id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VenueFacility{}
	for rows.Next() {
		var (
			f    model.VenueFacility
			x, y sql.NullFloat64
			desc sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.VenueAreaID, &f.AreaName, &f.Name, &f.FacilityType, &x, &y,
			&desc, &f.IsAccessible, &f.CreatedAt); err != nil {
			return nil, err
		}
		if x.Valid {
			f.PositionX = &x.Float64
		}
		if y.Valid {
			f.PositionY = &y.Float64
		}
		if desc.Valid {
			f.Description = &desc.String
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanBooth(s rowScanner) (*model.BoothPosition, error) {
	var (
		b         model.BoothPosition
		boothType string
	)
	if err := s.Scan(&b.ID, &b.VenueAreaID, &b.AreaName, &b.BoothNumber, &b.PositionX, &b.PositionY,
		&b.WidthMeters, &b.HeightMeters, &boothType, &b.HasPower, &b.HasInternet,
		&b.HasWater, &b.PricePerDay, &b.IsAvailable, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.BoothType = model.BoothType(boothType)
	return &b, nil
}
