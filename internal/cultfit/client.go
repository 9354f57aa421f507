package cultfit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/classbook/internal/domain/booking"
	"github.com/example/classbook/internal/logx"
)

const (
	DefaultBaseURL = "https://www.cult.fit"

	schedulePath = "/api/v2/fitso/web/schedule"
	bookPath     = "/api/v2/fitso/web/class/book"

	defaultFetchTimeout = 8 * time.Second
	defaultBookTimeout  = 10 * time.Second
	maxBodyBytes        = 4 << 20
)

// Client talks to the cult.fit web API with credentials captured from a
// logged-in app session (API key plus the st/at cookies).
type Client struct {
	hc      *http.Client
	creds   Credentials
	baseURL string
	log     logx.Logger

	FetchTimeout time.Duration
	BookTimeout  time.Duration
}

type Credentials struct {
	APIKey   string
	STCookie string
	ATCookie string
}

func New(baseURL string, creds Credentials, log logx.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		hc:           &http.Client{},
		creds:        creds,
		baseURL:      strings.TrimRight(baseURL, "/"),
		log:          log.With(logx.String("comp", "cultfit")),
		FetchTimeout: defaultFetchTimeout,
		BookTimeout:  defaultBookTimeout,
	}
}

var _ booking.Platform = (*Client)(nil)

// FetchSchedule returns the raw schedule document for one center.
func (c *Client) FetchSchedule(ctx context.Context, centerID int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.FetchTimeout)
	defer cancel()

	query := map[string]string{"centerId": strconv.FormatInt(centerID, 10)}
	c.log.Debug("fetching schedule", logx.Int64("center", centerID))
	status, body, err := c.do(ctx, http.MethodGet, schedulePath, query, nil)
	if err != nil {
		return nil, &booking.TransportError{Op: "fetch schedule", CenterID: centerID, StatusCode: status, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &booking.TransportError{Op: "fetch schedule", CenterID: centerID, StatusCode: status,
			Err: fmt.Errorf("unexpected status: %s", snippet(body))}
	}
	if !json.Valid(body) {
		c.log.Warn("schedule body is not json", logx.Int64("center", centerID), logx.Int("status", status), logx.String("body", snippet(body)))
		return nil, &booking.TransportError{Op: "fetch schedule", CenterID: centerID, StatusCode: status,
			Err: errors.New("response is not valid json")}
	}
	return body, nil
}

type bookPayload struct {
	CenterID         int64  `json:"centerId"`
	SlotID           string `json:"slotId"`
	WorkoutID        int64  `json:"workoutId"`
	BookingTimestamp int64  `json:"bookingTimestamp"`
}

// Book submits a class booking. Non-2xx replies are returned as a response,
// not an error, so the caller can explain the rejection.
func (c *Client) Book(ctx context.Context, req booking.BookRequest) (booking.BookResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.BookTimeout)
	defer cancel()

	jb, err := json.Marshal(bookPayload{
		CenterID:         req.CenterID,
		SlotID:           req.SlotID,
		WorkoutID:        req.WorkoutID,
		BookingTimestamp: req.TimestampMs,
	})
	if err != nil {
		return booking.BookResponse{}, err
	}
	c.log.Info("booking request",
		logx.Int64("center", req.CenterID), logx.String("slot", req.SlotID), logx.Int64("timestamp", req.TimestampMs))

	status, body, err := c.do(ctx, http.MethodPost, bookPath, nil, jb)
	if err != nil {
		return booking.BookResponse{}, &booking.TransportError{Op: "book", CenterID: req.CenterID, StatusCode: status, Err: err}
	}
	return booking.ParseBookResponse(status, body), nil
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("apiKey", c.creds.APIKey)
	req.Header.Set("Cookie", fmt.Sprintf("st=%s; at=%s", c.creds.STCookie, c.creds.ATCookie))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X)")

	if query != nil {
		q := req.URL.Query()
		for k, v := range query {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	c.log.Debug("http",
		logx.String("method", method), logx.String("path", path), logx.Int("status", res.StatusCode), logx.Duration("took", time.Since(start)))
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if utf8.RuneCountInString(s) > 200 {
		s = string([]rune(s)[:200])
	}
	return s
}
