package models

import (
	"slices"
	"time"
)

// FacilityCategory classifies an airport facility.
type FacilityCategory string

const (
	CategoryCafe          FacilityCategory = "cafe"
	CategoryShop          FacilityCategory = "shop"
	CategoryRestaurant    FacilityCategory = "restaurant"
	CategoryMedical       FacilityCategory = "medical"
	CategoryWifi          FacilityCategory = "wifi"
	CategoryPhone         FacilityCategory = "phone"
	CategoryBabycare      FacilityCategory = "babycare"
	CategoryAccessibility FacilityCategory = "accessibility"
	CategoryGate          FacilityCategory = "gate"
)

// CategoryInfo is the display metadata for a category.
type CategoryInfo struct {
	ID   FacilityCategory `json:"id"`
	Name string           `json:"name"`
	Icon string           `json:"icon"`
}

// Categories lists every category in display order.
var Categories = []CategoryInfo{
	{CategoryRestaurant, "Restaurant", "utensils"},
	{CategoryCafe, "Cafe", "coffee"},
	{CategoryShop, "Shopping", "shopping-bag"},
	{CategoryMedical, "Medical", "heart"},
	{CategoryWifi, "Wi-Fi", "wifi"},
	{CategoryPhone, "Phone", "phone"},
	{CategoryBabycare, "Baby care", "baby"},
	{CategoryAccessibility, "Accessibility", "accessibility"},
	{CategoryGate, "Gate", "plane"},
}

// Valid reports whether c is a known category.
func (c FacilityCategory) Valid() bool {
	for _, info := range Categories {
		if info.ID == c {
			return true
		}
	}
	return false
}

// Terminals and Floors are the locations the map knows about.
var (
	Terminals = []string{"T1", "T2"}
	Floors    = []string{"B1", "1F", "2F", "3F", "4F"}
)

// ValidTerminal reports whether t names a terminal.
func ValidTerminal(t string) bool { return slices.Contains(Terminals, t) }

// ValidFloor reports whether f names a floor.
func ValidFloor(f string) bool { return slices.Contains(Floors, f) }

// Coordinates is a point on the terminal floor map.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Facility is a point of interest inside a terminal.
type Facility struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Category       FacilityCategory `json:"category"`
	Location       string           `json:"location"`
	Terminal       string           `json:"terminal"`
	Floor          string           `json:"floor"`
	Coordinates    Coordinates      `json:"coordinates"`
	Description    string           `json:"description,omitempty"`
	OperatingHours string           `json:"operatingHours,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Website        string           `json:"website,omitempty"`
	Rating         *float64         `json:"rating,omitempty"`
	Reviews        *int             `json:"reviews,omitempty"`
	Images         []string         `json:"images"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// FacilityFilter narrows a facility listing. Empty fields match everything;
// Floor "ALL" and Category "all" are treated as empty.
type FacilityFilter struct {
	Terminal string
	Floor    string
	Category FacilityCategory
	Query    string
}
