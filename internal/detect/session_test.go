package detect

import (
	"math/rand"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masteryee/nest-events/pkg/models"
)

func utcPolicy() Policy {
	p := DefaultPolicy()
	p.Location = time.UTC
	return p
}

func personAt(name, start string, zones ...string) models.Camera {
	return models.Camera{
		DeviceID: "id-" + name,
		Name:     name,
		LastEvent: &models.LastEvent{
			HasPerson:       true,
			HasMotion:       true,
			StartTime:       start,
			ActivityZoneIDs: zones,
		},
	}
}

func dataLine(t *testing.T, cams map[string]models.Camera) string {
	t.Helper()
	payload := models.StreamPayload{
		Path: "/",
		Data: &models.DeviceTree{Devices: &models.Devices{Cameras: cams}},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return "data: " + string(b)
}

// feed pushes lines through the session and returns every decision.
func feed(t *testing.T, s *Session, lines ...string) []Decision {
	t.Helper()
	var all []Decision
	for _, line := range lines {
		ds, err := s.ProcessLine(line)
		require.NoError(t, err)
		all = append(all, ds...)
	}
	return all
}

// snapshot feeds one put/data pair with a single camera.
func snapshot(t *testing.T, s *Session, cam models.Camera) Decision {
	t.Helper()
	ds := feed(t, s, "event: put", dataLine(t, map[string]models.Camera{cam.DeviceID: cam}))
	require.Len(t, ds, 1)
	return ds[0]
}

func notifications(ds []Decision) []models.Notification {
	var out []models.Notification
	for _, d := range ds {
		if n, ok := d.Notification(); ok {
			out = append(out, n)
		}
	}
	return out
}

func TestSession_EndToEndSecondObservationNotifies(t *testing.T) {
	s := NewSession(utcPolicy())

	first := snapshot(t, s, personAt("Front", "2024-03-07T11:00:00Z", "z1"))
	assert.Equal(t, OutcomeInitialState, first.Outcome)

	line := `data: {"data":{"devices":{"cameras":{"c1":{"name":"Front","last_event":{"has_person":true,"start_time":"2024-03-07T12:00:00Z","activity_zone_ids":["z1"]}}}}}}`
	ds := feed(t, s, "event: put", line)

	got := notifications(ds)
	require.Len(t, got, 1)
	assert.Equal(t, "Front", got[0].DeviceName)
	assert.Equal(t, "2024-03-07 12:00:00PM", got[0].LocalTime)
	assert.Equal(t, []string{"z1"}, got[0].Zones)
}

func TestSession_FirstSnapshotNeverNotifies(t *testing.T) {
	s := NewSession(utcPolicy())

	ds := feed(t, s, "event: put", dataLine(t, map[string]models.Camera{
		"a": personAt("Front", "2024-03-07T12:00:00Z", "z1"),
		"b": personAt("Back", "2024-03-07T13:00:00Z", "z2"),
	}))

	require.Len(t, ds, 2)
	for _, d := range ds {
		assert.Equal(t, OutcomeInitialState, d.Outcome)
	}
	assert.Empty(t, notifications(ds))
}

func TestSession_EmptyOrMissingZonesNeverNotify(t *testing.T) {
	s := NewSession(utcPolicy())
	snapshot(t, s, personAt("Other", "2024-03-07T10:00:00Z", "z9"))

	assert.Equal(t, OutcomeNoZone, snapshot(t, s, personAt("Front", "2024-03-07T12:00:00Z")).Outcome)
	assert.Equal(t, OutcomeNoZone, snapshot(t, s, personAt("Front", "2024-03-07T13:00:00Z", "")).Outcome)

	// Zone-less events are not recorded, so the next zoned event is not debounced.
	assert.Equal(t, OutcomeNotify, snapshot(t, s, personAt("Front", "2024-03-07T13:00:10Z", "z1")).Outcome)
}

func TestSession_NoPersonAndNoEvent(t *testing.T) {
	s := NewSession(utcPolicy())

	motion := personAt("Front", "2024-03-07T12:00:00Z", "z1")
	motion.LastEvent.HasPerson = false
	assert.Equal(t, OutcomeNoPerson, snapshot(t, s, motion).Outcome)

	assert.Equal(t, OutcomeNoEvent, snapshot(t, s, models.Camera{DeviceID: "x", Name: "Idle"}).Outcome)
}

func TestSession_DuplicateReplayNotifiesOnce(t *testing.T) {
	s := NewSession(utcPolicy())
	snapshot(t, s, personAt("Other", "2024-03-07T10:00:00Z", "z9"))

	cam := personAt("Front", "2024-03-07T12:00:00Z", "z1")
	ds := []Decision{snapshot(t, s, cam), snapshot(t, s, cam)}

	assert.Len(t, notifications(ds), 1)
	assert.Equal(t, OutcomeDuplicate, ds[1].Outcome)
}

func TestSession_DebounceWindow(t *testing.T) {
	s := NewSession(utcPolicy())
	snapshot(t, s, personAt("Other", "2024-03-07T10:00:00Z", "z9"))

	assert.Equal(t, OutcomeNotify, snapshot(t, s, personAt("Front", "2024-03-07T12:00:00Z", "z1")).Outcome)
	assert.Equal(t, OutcomeDebounced, snapshot(t, s, personAt("Front", "2024-03-07T12:00:30Z", "z1")).Outcome)
	assert.Equal(t, OutcomeDebounced, snapshot(t, s, personAt("Front", "2024-03-07T12:00:59.999Z", "z1")).Outcome)
	// Debounced events are not recorded; the window is still measured from 12:00:00.
	assert.Equal(t, OutcomeNotify, snapshot(t, s, personAt("Front", "2024-03-07T12:01:00Z", "z1")).Outcome)

	// Windows are per device.
	assert.Equal(t, OutcomeNotify, snapshot(t, s, personAt("Back", "2024-03-07T12:01:05Z", "z2")).Outcome)
}

func TestSession_AtMostOneNotificationPerWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewSession(utcPolicy())
	snapshot(t, s, personAt("Other", "2024-03-07T10:00:00Z", "z9"))

	start := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	cur := start
	var notified []time.Time
	for i := 0; i < 500; i++ {
		cur = cur.Add(time.Duration(rng.Intn(45)) * time.Second)
		d := snapshot(t, s, personAt("Front", cur.Format(time.RFC3339), "z1"))
		if d.Outcome == OutcomeNotify {
			notified = append(notified, cur)
		}
	}

	require.NotEmpty(t, notified)
	for i := 1; i < len(notified); i++ {
		assert.GreaterOrEqual(t, notified[i].Sub(notified[i-1]), time.Minute)
	}
}

func TestSession_QuietHours(t *testing.T) {
	cases := []struct {
		start string
		want  Outcome
	}{
		{"2024-03-07T06:59:59Z", OutcomeNotify},
		{"2024-03-07T07:00:00Z", OutcomeQuietHours},
		{"2024-03-07T08:15:00Z", OutcomeQuietHours},
		{"2024-03-07T09:29:59Z", OutcomeQuietHours},
		{"2024-03-07T09:30:00Z", OutcomeNotify},
		{"2024-03-07T09:31:00Z", OutcomeNotify},
	}

	for _, tc := range cases {
		t.Run(tc.start, func(t *testing.T) {
			s := NewSession(utcPolicy())
			snapshot(t, s, personAt("Other", "2024-03-07T01:00:00Z", "z9"))
			assert.Equal(t, tc.want, snapshot(t, s, personAt("Front", tc.start, "z1")).Outcome)
		})
	}
}

func TestSession_QuietHoursUseLocalClock(t *testing.T) {
	p := DefaultPolicy()
	p.Location = time.FixedZone("EST", -5*3600)
	s := NewSession(p)
	snapshot(t, s, personAt("Other", "2024-03-07T01:00:00Z", "z9"))

	// 13:15 UTC is 08:15 local.
	assert.Equal(t, OutcomeQuietHours, snapshot(t, s, personAt("Front", "2024-03-07T13:15:00Z", "z1")).Outcome)
	// 08:15 UTC is 03:15 local.
	assert.Equal(t, OutcomeNotify, snapshot(t, s, personAt("Back", "2024-03-07T08:15:00Z", "z1")).Outcome)
}

func TestSession_SuppressedEventsStillRecorded(t *testing.T) {
	s := NewSession(utcPolicy())

	// Initial state records the start time.
	assert.Equal(t, OutcomeInitialState, snapshot(t, s, personAt("Front", "2024-03-07T12:00:00Z", "z1")).Outcome)
	assert.Equal(t, OutcomeDebounced, snapshot(t, s, personAt("Front", "2024-03-07T12:00:20Z", "z1")).Outcome)

	// So does a quiet-hours event.
	assert.Equal(t, OutcomeQuietHours, snapshot(t, s, personAt("Front", "2024-03-08T08:00:00Z", "z1")).Outcome)
	assert.Equal(t, OutcomeDuplicate, snapshot(t, s, personAt("Front", "2024-03-08T08:00:00Z", "z1")).Outcome)
	assert.Equal(t, OutcomeDebounced, snapshot(t, s, personAt("Front", "2024-03-08T08:00:45Z", "z1")).Outcome)
}

func TestSession_NewSessionResetsState(t *testing.T) {
	cam := personAt("Front", "2024-03-07T12:00:00Z", "z1")

	s := NewSession(utcPolicy())
	snapshot(t, s, personAt("Other", "2024-03-07T10:00:00Z", "z9"))
	require.Equal(t, OutcomeNotify, snapshot(t, s, cam).Outcome)

	reconnected := NewSession(utcPolicy())
	assert.Equal(t, OutcomeInitialState, snapshot(t, reconnected, cam).Outcome)
}

func TestSession_LineStateMachine(t *testing.T) {
	s := NewSession(utcPolicy())
	line := dataLine(t, map[string]models.Camera{"c": personAt("Front", "2024-03-07T12:00:00Z", "z1")})

	// A data line without a preceding put is ignored.
	assert.Empty(t, feed(t, s, line))

	// Unrelated lines between put and data do not drop the expectation.
	ds := feed(t, s, "event: put", "", "id: 17", line+"\r")
	require.Len(t, ds, 1)
	assert.Equal(t, OutcomeInitialState, ds[0].Outcome)

	// Keep-alives are not puts.
	assert.Empty(t, feed(t, s, "event: keep-alive", "data: null"))
}

func TestSession_MalformedPayloadSkipsLineOnly(t *testing.T) {
	s := NewSession(utcPolicy())

	_, err := s.ProcessLine("event: put")
	require.NoError(t, err)
	ds, err := s.ProcessLine(`data: {"data": {"devices": `)
	assert.Empty(t, ds)

	var malformed *MalformedPayloadError
	require.ErrorAs(t, err, &malformed)

	// The malformed line did not count as the initial snapshot.
	got := feed(t, s, "event: put", dataLine(t, map[string]models.Camera{"c": personAt("Front", "2024-03-07T12:00:00Z", "z1")}))
	require.Len(t, got, 1)
	assert.Equal(t, OutcomeInitialState, got[0].Outcome)
}

func TestSession_SnapshotWithoutCamerasDoesNotConsumeFirstObservation(t *testing.T) {
	s := NewSession(utcPolicy())

	assert.Empty(t, feed(t, s, "event: put", `data: {"path":"/","data":{"structures":{}}}`))

	ds := feed(t, s, "event: put", dataLine(t, map[string]models.Camera{"c": personAt("Front", "2024-03-07T12:00:00Z", "z1")}))
	require.Len(t, ds, 1)
	assert.Equal(t, OutcomeInitialState, ds[0].Outcome)
}

func TestSession_UnparseableStartTime(t *testing.T) {
	s := NewSession(utcPolicy())
	snapshot(t, s, personAt("Other", "2024-03-07T10:00:00Z", "z9"))

	d := snapshot(t, s, personAt("Front", "yesterday", "z1"))
	assert.Equal(t, OutcomeNotify, d.Outcome)
	assert.Equal(t, "yesterday", d.LocalTime)

	assert.Equal(t, OutcomeNotify, snapshot(t, s, personAt("Front", "today", "z1")).Outcome)
	assert.Equal(t, OutcomeDuplicate, snapshot(t, s, personAt("Front", "today", "z1")).Outcome)
}

func TestFormatLocal(t *testing.T) {
	assert.Equal(t, "2024-03-07 7:42:15PM", FormatLocal("2024-03-07T19:42:15Z", time.UTC))
	assert.Equal(t, "2024-03-07 7:42:15AM", FormatLocal("2024-03-07T19:42:15.000Z", time.FixedZone("X", -12*3600)))
	assert.Equal(t, "not a time", FormatLocal("not a time", time.UTC))
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	_, err = ParseClock("9.30")
	assert.Error(t, err)
}

func TestPolicy_QuietWrapsMidnight(t *testing.T) {
	p := Policy{QuietStart: 22 * 60, QuietEnd: 6 * 60, Location: time.UTC}
	assert.True(t, p.Quiet(time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)))
	assert.True(t, p.Quiet(time.Date(2024, 1, 1, 5, 59, 0, 0, time.UTC)))
	assert.False(t, p.Quiet(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))

	disabled := Policy{QuietStart: 0, QuietEnd: 0}
	assert.False(t, disabled.Quiet(time.Now()))
}
