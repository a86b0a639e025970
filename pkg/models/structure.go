package models

// Structure is a home on the account. Cameras lists device IDs.
type Structure struct {
	StructureID string   `json:"structure_id"`
	Name        string   `json:"name"`
	Away        string   `json:"away"` // home, away
	TimeZone    string   `json:"time_zone,omitempty"`
	CountryCode string   `json:"country_code,omitempty"`
	Cameras     []string `json:"cameras,omitempty"`
}
