package database

import (
	"database/sql"
	"fmt"
)

type seedDevice struct {
	id, name, kind string
	battery        int
	x, y           float64
	available      bool
}

var defaultDevices = []seedDevice{
	{"JA1732", "Electric bike", "BIKE", 85, 450, 650, true},
	{"JA1456", "Electric bike", "BIKE", 72, 280, 350, true},
	{"JA2034", "Electric kickboard", "KICKBOARD", 65, 600, 400, true},
	{"JA1890", "Electric bike", "BIKE", 45, 700, 550, false},
	{"JA1566", "Electric kickboard", "KICKBOARD", 92, 350, 500, true},
}

type seedFacility struct {
	id, name, category, location, terminal, floor string
	x, y                                          float64
	hours                                         string
}

var defaultFacilities = []seedFacility{
	{"fac-cafe-t1-3f", "Sky Lounge Coffee", "cafe", "Departure hall, east wing", "T1", "3F", 420, 310, "06:00-22:00"},
	{"fac-rest-t1-4f", "Runway Kitchen", "restaurant", "Food court", "T1", "4F", 510, 220, "07:00-21:30"},
	{"fac-shop-t1-3f", "Duty Free Main", "shop", "Airside, gates 10-20", "T1", "3F", 640, 380, "06:30-21:30"},
	{"fac-med-t1-1f", "Airport Medical Center", "medical", "Arrival hall, west", "T1", "1F", 180, 460, "24h"},
	{"fac-baby-t1-3f", "Nursing Room", "babycare", "Near gate 12", "T1", "3F", 700, 300, "24h"},
	{"fac-gate-t1-12", "Gate 12", "gate", "Concourse A", "T1", "3F", 720, 280, ""},
	{"fac-wifi-t2-3f", "Free Wi-Fi Zone", "wifi", "Departure hall", "T2", "3F", 300, 300, "24h"},
	{"fac-acc-t2-1f", "Accessibility Service Desk", "accessibility", "Arrival hall, gate B", "T2", "1F", 260, 520, "05:00-23:00"},
	{"fac-phone-t2-b1", "Roaming Center", "phone", "Transportation center", "T2", "B1", 400, 600, "06:00-22:00"},
	{"fac-gate-t2-250", "Gate 250", "gate", "Concourse B", "T2", "3F", 820, 240, ""},
}

// Seed inserts the default device fleet and facility catalogue into empty tables.
func Seed(db *sql.DB) error {
	if err := seedIfEmpty(db, "devices", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("INSERT INTO devices (id, name, type, battery_level, pos_x, pos_y, available) VALUES (?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, d := range defaultDevices {
			if _, err := stmt.Exec(d.id, d.name, d.kind, d.battery, d.x, d.y, d.available); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return seedIfEmpty(db, "facilities", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO facilities (id, name, category, location, terminal, floor, coord_x, coord_y, operating_hours)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range defaultFacilities {
			var hours sql.NullString
			if f.hours != "" {
				hours = sql.NullString{String: f.hours, Valid: true}
			}
			if _, err := stmt.Exec(f.id, f.name, f.category, f.location, f.terminal, f.floor, f.x, f.y, hours); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedIfEmpty(db *sql.DB, table string, insert func(tx *sql.Tx) error) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		return fmt.Errorf("failed to count %s: %w", table, err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to seed %s: %w", table, err)
	}
	return tx.Commit()
}
