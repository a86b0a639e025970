package models

// Notification is a decision to alert about one camera event.
type Notification struct {
	DeviceName string   `json:"deviceName"`
	LocalTime  string   `json:"localTime"` // start time rendered in the local zone
	StartTime  string   `json:"startTime"` // raw start time as sent by the hub
	Zones      []string `json:"zones"`
}
