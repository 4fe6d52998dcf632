package models

// DeviceType is the kind of mobility device.
type DeviceType string

const (
	DeviceBike      DeviceType = "BIKE"
	DeviceKickboard DeviceType = "KICKBOARD"
)

// Device is a mobility robot/vehicle available for instant use.
type Device struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         DeviceType  `json:"type"`
	BatteryLevel int         `json:"batteryLevel"`
	Position     Coordinates `json:"position"`
	Available    bool        `json:"available"`
}
