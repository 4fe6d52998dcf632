package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // SQL dialect for the query builder
	"github.com/isdelr/airmove-be/internal/models"
)

// FacilityServiceProvider defines the interface for facility lookups.
type FacilityServiceProvider interface {
	ListFacilities(ctx context.Context, filter models.FacilityFilter) ([]models.Facility, error)
	GetFacilityByID(ctx context.Context, id string) (models.Facility, error)
}

// FacilityService serves the airport facility catalogue.
type FacilityService struct {
	db      *sql.DB
	builder *goqu.Database
}

// NewFacilityService creates a new FacilityService.
func NewFacilityService(db *sql.DB) *FacilityService {
	return &FacilityService{
		db:      db,
		builder: goqu.New("sqlite3", db),
	}
}

var facilityColumns = []interface{}{
	"id", "name", "category", "location", "terminal", "floor", "coord_x", "coord_y",
	"description", "operating_hours", "phone", "website", "rating", "reviews",
	"images_json", "created_at", "updated_at",
}

// ListFacilities returns facilities matching the filter, ordered by name.
func (s *FacilityService) ListFacilities(ctx context.Context, filter models.FacilityFilter) ([]models.Facility, error) {
	ds := s.builder.From("facilities").Select(facilityColumns...)

	if filter.Terminal != "" {
		if !models.ValidTerminal(filter.Terminal) {
			return nil, fmt.Errorf("unknown terminal %q: %w", filter.Terminal, ErrValidation)
		}
		ds = ds.Where(goqu.Ex{"terminal": filter.Terminal})
	}
	if filter.Floor != "" && !strings.EqualFold(filter.Floor, "ALL") {
		if !models.ValidFloor(filter.Floor) {
			return nil, fmt.Errorf("unknown floor %q: %w", filter.Floor, ErrValidation)
		}
		ds = ds.Where(goqu.Ex{"floor": filter.Floor})
	}
	if filter.Category != "" && filter.Category != "all" {
		if !filter.Category.Valid() {
			return nil, fmt.Errorf("unknown category %q: %w", filter.Category, ErrValidation)
		}
		ds = ds.Where(goqu.Ex{"category": string(filter.Category)})
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		// Plain substring match, so % and _ in the query are not wildcards.
		ds = ds.Where(goqu.Or(
			goqu.L("instr(lower(name), lower(?)) > 0", q),
			goqu.L("instr(lower(location), lower(?)) > 0", q),
		))
	}

	query, args, err := ds.Order(goqu.I("name").Asc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build facility query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facilities := []models.Facility{}
	for rows.Next() {
		facility, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, facility)
	}
	return facilities, rows.Err()
}

// GetFacilityByID retrieves a single facility.
func (s *FacilityService) GetFacilityByID(ctx context.Context, id string) (models.Facility, error) {
	query, args, err := s.builder.From("facilities").
		Select(facilityColumns...).
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return models.Facility{}, fmt.Errorf("failed to build facility query: %w", err)
	}

	facility, err := scanFacility(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Facility{}, fmt.Errorf("facility %s: %w", id, ErrNotFound)
		}
		return models.Facility{}, err
	}
	return facility, nil
}

// scanFacility scans a single row into a Facility struct.
func scanFacility(scanner interface{ Scan(...interface{}) error }) (models.Facility, error) {
	var f models.Facility
	var description, hours, phone, website sql.NullString
	var rating sql.NullFloat64
	var reviews sql.NullInt64
	var imagesJSON string

	err := scanner.Scan(
		&f.ID, &f.Name, &f.Category, &f.Location, &f.Terminal, &f.Floor,
		&f.Coordinates.X, &f.Coordinates.Y,
		&description, &hours, &phone, &website, &rating, &reviews,
		&imagesJSON, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return models.Facility{}, err
	}

	f.Description = description.String
	f.OperatingHours = hours.String
	f.Phone = phone.String
	f.Website = website.String
	if rating.Valid {
		f.Rating = &rating.Float64
	}
	if reviews.Valid {
		n := int(reviews.Int64)
		f.Reviews = &n
	}
	f.Images = []string{}
	if imagesJSON != "" {
		if err := json.Unmarshal([]byte(imagesJSON), &f.Images); err != nil {
			return models.Facility{}, fmt.Errorf("facility %s has malformed images: %w", f.ID, err)
		}
	}
	return f, nil
}
