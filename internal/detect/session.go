// Package detect decides which camera events deserve an alert.
//
// A Session consumes the text lines of one event-stream connection in order.
// It pairs each "event: put" marker with the following "data: " line,
// decodes the device snapshot and runs every camera through the policy:
//
//  1. no last_event            -> OutcomeNoEvent
//  2. no person                -> OutcomeNoPerson
//  3. no activity zone         -> OutcomeNoZone
//  4. same start time as last  -> OutcomeDuplicate
//  5. inside the debounce gap  -> OutcomeDebounced
//  6. (start time is recorded as the device's last accepted event)
//  7. first snapshot of session-> OutcomeInitialState
//  8. inside the quiet window  -> OutcomeQuietHours
//  9. otherwise                -> OutcomeNotify
//
// A new Session must be used for every connection: the hub replays its full
// state when a stream opens and that replay is not new activity.
package detect

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/masteryee/nest-events/pkg/models"
)

const (
	putMarker  = "event: put"
	dataPrefix = "data: "
)

// Outcome names the rule that settled a camera observation.
type Outcome string

const (
	OutcomeNoEvent      Outcome = "no_event"
	OutcomeNoPerson     Outcome = "no_person"
	OutcomeNoZone       Outcome = "no_zone"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeDebounced    Outcome = "debounced"
	OutcomeInitialState Outcome = "initial_state"
	OutcomeQuietHours   Outcome = "quiet_hours"
	OutcomeNotify       Outcome = "notify"
)

// Outcomes lists every outcome, in policy order.
var Outcomes = []Outcome{
	OutcomeNoEvent, OutcomeNoPerson, OutcomeNoZone, OutcomeDuplicate,
	OutcomeDebounced, OutcomeInitialState, OutcomeQuietHours, OutcomeNotify,
}

// Decision is the verdict for one camera in one snapshot.
type Decision struct {
	CameraID   string   `json:"cameraId"`
	DeviceName string   `json:"deviceName"`
	StartTime  string   `json:"startTime,omitempty"`
	LocalTime  string   `json:"localTime,omitempty"`
	Zones      []string `json:"zones,omitempty"`
	Outcome    Outcome  `json:"outcome"`
}

// Notification returns the alert intent when the decision is OutcomeNotify.
func (d Decision) Notification() (models.Notification, bool) {
	if d.Outcome != OutcomeNotify {
		return models.Notification{}, false
	}
	return models.Notification{
		DeviceName: d.DeviceName,
		LocalTime:  d.LocalTime,
		StartTime:  d.StartTime,
		Zones:      d.Zones,
	}, true
}

// Session is the classifier state for one stream connection.
// It is not safe for concurrent use; lines must be fed in arrival order.
type Session struct {
	policy Policy

	expectingData    bool
	firstObservation bool
	lastAccepted     map[string]string // device name -> raw start time
}

// NewSession starts an empty session.
func NewSession(policy Policy) *Session {
	return &Session{
		policy:           policy,
		firstObservation: true,
		lastAccepted:     make(map[string]string),
	}
}

// ProcessLine feeds one line of the stream. It returns a decision per camera
// when the line completes a put/data pair. A data line that does not decode
// yields a *MalformedPayloadError and leaves the session usable.
func (s *Session) ProcessLine(line string) ([]Decision, error) {
	line = strings.TrimSuffix(line, "\r")

	if !s.expectingData {
		if line == putMarker {
			s.expectingData = true
		}
		return nil, nil
	}

	// Anything but a data line keeps us waiting for the put's payload.
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, nil
	}
	s.expectingData = false

	var payload models.StreamPayload
	if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &payload); err != nil {
		return nil, &MalformedPayloadError{Line: line, Err: err}
	}
	if payload.Data == nil || payload.Data.Devices == nil || payload.Data.Devices.Cameras == nil {
		return nil, nil
	}

	return s.evaluate(payload.Data.Devices.Cameras), nil
}

// evaluate runs the policy over every camera of one snapshot.
// Cameras are visited in ID order so results are deterministic.
func (s *Session) evaluate(cameras map[string]models.Camera) []Decision {
	ids := make([]string, 0, len(cameras))
	for id := range cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	decisions := make([]Decision, 0, len(ids))
	for _, id := range ids {
		decisions = append(decisions, s.decide(id, cameras[id]))
	}

	// The whole first snapshot is the hub's replay of existing state.
	s.firstObservation = false
	return decisions
}

func (s *Session) decide(id string, cam models.Camera) Decision {
	d := Decision{CameraID: id, DeviceName: cam.DisplayName()}

	ev := cam.LastEvent
	if ev == nil {
		d.Outcome = OutcomeNoEvent
		return d
	}
	d.StartTime = ev.StartTime
	d.LocalTime = FormatLocal(ev.StartTime, s.policy.location())
	d.Zones = nonEmpty(ev.ActivityZoneIDs)

	if !ev.HasPerson {
		d.Outcome = OutcomeNoPerson
		return d
	}
	if len(d.Zones) == 0 {
		d.Outcome = OutcomeNoZone
		return d
	}

	if prev, ok := s.lastAccepted[d.DeviceName]; ok {
		if prev == ev.StartTime {
			d.Outcome = OutcomeDuplicate
			return d
		}
		if s.withinWindow(prev, ev.StartTime) {
			d.Outcome = OutcomeDebounced
			return d
		}
	}

	s.lastAccepted[d.DeviceName] = ev.StartTime

	if s.firstObservation {
		d.Outcome = OutcomeInitialState
		return d
	}

	if start, ok := parseTime(ev.StartTime); ok && s.policy.Quiet(start) {
		d.Outcome = OutcomeQuietHours
		return d
	}

	d.Outcome = OutcomeNotify
	return d
}

// withinWindow reports whether cur starts less than the debounce window after
// prev. Start times that do not parse are never debounced.
func (s *Session) withinWindow(prev, cur string) bool {
	if s.policy.Window <= 0 {
		return false
	}
	p, ok := parseTime(prev)
	if !ok {
		return false
	}
	c, ok := parseTime(cur)
	if !ok {
		return false
	}
	return c.Before(p.Add(s.policy.Window))
}

func nonEmpty(zones []string) []string {
	var out []string
	for _, z := range zones {
		if z != "" {
			out = append(out, z)
		}
	}
	return out
}
