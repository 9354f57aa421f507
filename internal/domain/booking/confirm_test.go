package booking

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBookingTimestamp(t *testing.T) {
	t.Parallel()
	want := time.Date(2026, time.October, 21, 2, 30, 0, 0, time.UTC).UnixMilli()
	for _, in := range []string{
		"Wed, 21 Oct 2026 02:30:00 GMT",
		"Wed, 21 Oct 2026 2:30:00 GMT",
		" Wed, 21 Oct 2026 02:30:00 GMT ",
	} {
		got, err := BookingTimestamp(in)
		if err != nil {
			t.Fatalf("BookingTimestamp(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("BookingTimestamp(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBookingTimestampInvalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		"",
		"GMT",
		"2026-10-21T02:30:00Z",
		"Wed, 21 Foo 2026 02:30:00 GMT",
		"Thu, 1 Jan 1970 00:00:00 GMT",
	} {
		_, err := BookingTimestamp(in)
		if !errors.Is(err, ErrNoTimestamp) {
			t.Fatalf("BookingTimestamp(%q) err = %v, want ErrNoTimestamp", in, err)
		}
	}
}

func TestBookResponseConfirmed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		status     int
		body       string
		want       bool
		wantReason string
	}{
		{name: "booked", status: 200, body: `{"header":{"title":"Booked!"}}`, want: true},
		{name: "confirmed any case", status: 200, body: `{"header":{"title":"Your class is CONFIRMED"}}`, want: true},
		{name: "booked lower case", status: 200, body: `{"header":{"title":"booked"}}`, want: false, wantReason: "booked"},
		{name: "sold out", status: 200, body: `{"header":{"title":"Sold out"}}`, want: false, wantReason: "Sold out"},
		{name: "server error", status: 500, body: `{"header":{"title":"Booked!"}}`, want: false, wantReason: "Booked!"},
		{name: "message only", status: 400, body: `{"message":"slot closed"}`, want: false, wantReason: "slot closed"},
		{name: "title wrong type", status: 200, body: `{"header":{"title":42},"message":"odd"}`, want: false, wantReason: "odd"},
		{name: "header wrong type", status: 200, body: `{"header":"Booked"}`, want: false, wantReason: `{"header":"Booked"}`},
		{name: "not json", status: 502, body: `Bad Gateway`, want: false, wantReason: "Bad Gateway"},
		{name: "empty", status: 503, body: ``, want: false, wantReason: "HTTP 503"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := ParseBookResponse(tt.status, []byte(tt.body))
			if got := r.Confirmed(); got != tt.want {
				t.Fatalf("Confirmed() = %v, want %v", got, tt.want)
			}
			if !tt.want {
				if got := r.Reason(); got != tt.wantReason {
					t.Fatalf("Reason() = %q, want %q", got, tt.wantReason)
				}
			}
		})
	}
}

func TestParseBookResponseFieldStates(t *testing.T) {
	t.Parallel()
	r := ParseBookResponse(200, []byte(`{"header":{"subtitle":"x"}}`))
	if !r.JSON || r.Title.State != FieldAbsent {
		t.Fatalf("title state = %v, json = %v", r.Title.State, r.JSON)
	}
	r = ParseBookResponse(200, []byte(`{"header":{"title":null}}`))
	if r.Title.State != FieldAbsent {
		t.Fatalf("null title state = %v, want absent", r.Title.State)
	}
	r = ParseBookResponse(200, []byte(`{"header":{"title":["Booked"]}}`))
	if r.Title.State != FieldWrongType {
		t.Fatalf("array title state = %v, want wrong type", r.Title.State)
	}
	r = ParseBookResponse(200, []byte(`[]`))
	if r.JSON {
		t.Fatal("array body should not count as a JSON object")
	}
}

func TestReasonTruncatesBody(t *testing.T) {
	t.Parallel()
	body := strings.Repeat("x", 500)
	got := ParseBookResponse(500, []byte(body)).Reason()
	if n := len([]rune(got)); n != maxReasonRunes+1 {
		t.Fatalf("reason has %d runes, want %d", n, maxReasonRunes+1)
	}
}

func TestFatalStatus(t *testing.T) {
	t.Parallel()
	s := FatalStatus(errors.New("boom"))
	if s != "error during booking run: boom" || !s.IsFatal() {
		t.Fatalf("FatalStatus = %q", s)
	}
	if StatusFailed.IsFatal() {
		t.Fatal("StatusFailed should not be fatal")
	}
}
