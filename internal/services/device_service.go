package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/airmove-be/internal/models"
)

// DeviceServiceProvider defines the interface for the mobility fleet.
type DeviceServiceProvider interface {
	ListDevices(ctx context.Context, onlyAvailable bool) ([]models.Device, error)
	GetDeviceByID(ctx context.Context, id string) (models.Device, error)
}

// DeviceService provides read access to the device fleet. Availability is
// changed by the navigation flow.
type DeviceService struct {
	db *sql.DB
}

// NewDeviceService creates a new DeviceService.
func NewDeviceService(db *sql.DB) *DeviceService {
	return &DeviceService{db: db}
}

const deviceColumns = "id, name, type, battery_level, pos_x, pos_y, available"

// ListDevices returns the fleet ordered by id.
func (s *DeviceService) ListDevices(ctx context.Context, onlyAvailable bool) ([]models.Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices"
	if onlyAvailable {
		query += " WHERE available = TRUE"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// GetDeviceByID retrieves a single device.
func (s *DeviceService) GetDeviceByID(ctx context.Context, id string) (models.Device, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx, "SELECT "+deviceColumns+" FROM devices WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
		}
		return models.Device{}, err
	}
	return d, nil
}

func scanDevice(scanner interface{ Scan(...interface{}) error }) (models.Device, error) {
	var d models.Device
	err := scanner.Scan(&d.ID, &d.Name, &d.Type, &d.BatteryLevel, &d.Position.X, &d.Position.Y, &d.Available)
	return d, err
}
