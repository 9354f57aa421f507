package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

type FieldState int

const (
	FieldAbsent FieldState = iota
	FieldPresent
	FieldWrongType
)

func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldWrongType:
		return "wrong type"
	default:
		return "absent"
	}
}

// StringField is one optional string read out of a loosely shaped response.
// JSON null counts as absent.
type StringField struct {
	State FieldState
	Value string
}

func (f StringField) nonEmpty() (string, bool) {
	if f.State != FieldPresent || strings.TrimSpace(f.Value) == "" {
		return "", false
	}
	return f.Value, true
}

// BookResponse is the partially parsed reply to a booking submission.
type BookResponse struct {
	StatusCode int
	Body       []byte
	// JSON is false when the body is not a JSON object.
	JSON    bool
	Title   StringField // header.title
	Message StringField // message
}

const maxReasonRunes = 200

func ParseBookResponse(statusCode int, body []byte) BookResponse {
	r := BookResponse{StatusCode: statusCode, Body: body}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || top == nil {
		return r
	}
	r.JSON = true
	r.Message = stringField(top, "message")

	header, ok := top["header"]
	if !ok || isNull(header) {
		return r
	}
	var h map[string]json.RawMessage
	if err := json.Unmarshal(header, &h); err != nil {
		r.Title = StringField{State: FieldWrongType}
		return r
	}
	r.Title = stringField(h, "title")
	return r
}

func stringField(m map[string]json.RawMessage, key string) StringField {
	v, ok := m[key]
	if !ok || isNull(v) {
		return StringField{}
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return StringField{State: FieldWrongType}
	}
	return StringField{State: FieldPresent, Value: s}
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// Confirmed reports whether the platform accepted the booking: a 2xx status
// and a title containing "Booked" (exact case) or "confirmed" (any case).
func (r BookResponse) Confirmed() bool {
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return false
	}
	if r.Title.State != FieldPresent {
		return false
	}
	return strings.Contains(r.Title.Value, "Booked") ||
		strings.Contains(strings.ToLower(r.Title.Value), "confirmed")
}

// Reason is the operator-facing explanation for an unconfirmed booking.
func (r BookResponse) Reason() string {
	if s, ok := r.Title.nonEmpty(); ok {
		return s
	}
	if s, ok := r.Message.nonEmpty(); ok {
		return s
	}
	if b := strings.TrimSpace(string(r.Body)); b != "" {
		return truncate(b, maxReasonRunes)
	}
	return fmt.Sprintf("HTTP %d", r.StatusCode)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	rs := []rune(s)
	return string(rs[:n]) + "…"
}
