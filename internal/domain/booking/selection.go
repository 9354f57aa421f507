package booking

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type dateGroup struct {
	ID    json.RawMessage `json:"id"`
	Times []timeGroup     `json:"classByTimeList"`
}

type timeGroup struct {
	ID      json.RawMessage              `json:"id"`
	Classes []map[string]json.RawMessage `json:"classes"`
}

// MatchSlots filters a center's raw schedule document down to the classes
// that can be booked under prefs. Order is date, then time label, then entry,
// as delivered by the platform.
//
// ok is false when the document is not an object, lacks classByDateList, or
// its groups have the wrong shape. A well-formed schedule with nothing
// matching returns an empty slice and ok=true.
func MatchSlots(centerID int64, raw []byte, prefs Preferences) (matches []Candidate, ok bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return nil, false
	}
	rawDates, found := top["classByDateList"]
	if !found {
		return nil, false
	}
	var dates []dateGroup
	if err := json.Unmarshal(rawDates, &dates); err != nil {
		return nil, false
	}

	matches = []Candidate{}
	for _, d := range dates {
		for _, tg := range d.Times {
			label := rawText(tg.ID)
			tod, parsed := parseTimeLabel(label)
			if !parsed || !prefs.wants(tod) {
				continue
			}
			for _, class := range tg.Classes {
				workout, isNum := rawInt(class["workoutId"])
				if !isNum || workout != prefs.WorkoutID {
					continue
				}
				seats, _ := rawInt(class["availableSeats"])
				if seats <= 0 {
					continue
				}
				matches = append(matches, Candidate{
					CenterID:     centerID,
					Date:         rawText(d.ID),
					Time:         label,
					SlotID:       rawText(class["id"]),
					WorkoutID:    workout,
					Seats:        seats,
					StartTimeUTC: rawText(class["startDateTimeUTC"]),
				})
			}
		}
	}
	return matches, true
}

// parseTimeLabel reads the leading HOUR:MINUTE of a label such as "08:00" or "08:00:00".
func parseTimeLabel(s string) (TimeOfDay, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return TimeOfDay{}, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return TimeOfDay{}, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: h, Minute: m}, true
}

// rawText renders a JSON scalar as text: strings unquoted, numbers verbatim, null empty.
func rawText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return string(v)
}

// rawInt accepts JSON numbers with an integral value. Quoted numbers are rejected.
func rawInt(v json.RawMessage) (int64, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] == '"' {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
