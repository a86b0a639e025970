package models

// StreamPayload is the JSON carried on a "data: " line after "event: put".
// The hub sends the whole device tree under "data".
type StreamPayload struct {
	Path string      `json:"path"`
	Data *DeviceTree `json:"data"`
}

// DeviceTree is the root of a hub snapshot.
type DeviceTree struct {
	Devices *Devices `json:"devices"`
}

// Devices groups devices by kind. Only cameras are of interest here.
type Devices struct {
	Cameras map[string]Camera `json:"cameras"`
}

// Camera represents a single camera in the snapshot tree
type Camera struct {
	DeviceID    string     `json:"device_id"`
	Name        string     `json:"name"`
	NameLong    string     `json:"name_long"`
	IsOnline    bool       `json:"is_online"`
	IsStreaming bool       `json:"is_streaming"`
	SnapshotURL string     `json:"snapshot_url,omitempty"`
	LastEvent   *LastEvent `json:"last_event,omitempty"`
}

// DisplayName returns the short name, falling back to the device ID.
func (c Camera) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.DeviceID
}

// LastEvent is the most recent activity a camera reported.
type LastEvent struct {
	HasSound        bool     `json:"has_sound"`
	HasMotion       bool     `json:"has_motion"`
	HasPerson       bool     `json:"has_person"`
	StartTime       string   `json:"start_time"` // ISO 8601, UTC
	EndTime         string   `json:"end_time,omitempty"`
	ActivityZoneIDs []string `json:"activity_zone_ids,omitempty"`
}
