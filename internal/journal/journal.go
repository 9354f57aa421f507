package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/example/classbook/internal/engine"
)

// Journal is an append-only audit log of booking cycles. Nothing reads it
// back into runtime state.
type Journal struct{ db *DB }

func New(d *DB) *Journal { return &Journal{db: d} }

var _ engine.Recorder = (*Journal)(nil)

type Cycle struct {
	ID         uuid.UUID
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Booked     bool
	Attempts   []Attempt
}

type Attempt struct {
	CenterID    int64
	SlotID      string
	Date        string
	Time        string
	TimestampMs int64
	Success     bool
	Reason      string
	At          time.Time
}

func (j *Journal) RecordCycle(ctx context.Context, out engine.Outcome) error {
	return j.db.Tx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO journal_cycles(id, trigger, started_at, finished_at, status, booked)
VALUES ($1::uuid,$2,$3,$4,$5,$6)`,
			out.ID.String(), string(out.Trigger), out.StartedAt, out.FinishedAt, string(out.Status), out.Booked,
		); err != nil {
			return fmt.Errorf("insert cycle: %w", err)
		}
		for _, a := range out.Attempts {
			if _, err := tx.Exec(ctx, `
INSERT INTO journal_attempts(cycle_id, center_id, slot_id, class_date, class_time, booking_ts, success, reason, attempted_at)
VALUES ($1::uuid,$2,$3,$4,$5,$6,$7,$8,$9)`,
				out.ID.String(), a.CenterID, a.SlotID, a.Date, a.Time, a.TimestampMs, a.Success, a.Reason, a.At,
			); err != nil {
				return fmt.Errorf("insert attempt: %w", err)
			}
		}
		return nil
	})
}

// Recent returns the newest cycles first, each with its attempts in order.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Cycle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	rows, err := j.db.Query(ctx, `
SELECT id::text, trigger, started_at, finished_at, status, booked
FROM journal_cycles
ORDER BY started_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var c Cycle
		var id string
		if err := rows.Scan(&id, &c.Trigger, &c.StartedAt, &c.FinishedAt, &c.Status, &c.Booked); err != nil {
			return nil, err
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("cycle id %q: %w", id, err)
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	arows, err := j.db.Query(ctx, `
SELECT cycle_id::text, center_id, slot_id, class_date, class_time, booking_ts, success, reason, attempted_at
FROM journal_attempts
WHERE cycle_id IN (SELECT id FROM journal_cycles ORDER BY started_at DESC LIMIT $1)
ORDER BY id`, limit)
	if err != nil {
		return nil, err
	}
	defer arows.Close()

	for arows.Next() {
		var a Attempt
		var cid string
		if err := arows.Scan(&cid, &a.CenterID, &a.SlotID, &a.Date, &a.Time, &a.TimestampMs, &a.Success, &a.Reason, &a.At); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(cid)
		if err != nil {
			return nil, fmt.Errorf("attempt cycle id %q: %w", cid, err)
		}
		if i, ok := index[id]; ok {
			out[i].Attempts = append(out[i].Attempts, a)
		}
	}
	return out, arows.Err()
}

// Format renders c for terminal output in loc.
func (c Cycle) Format(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	status := c.Status
	if status == "" {
		status = "none"
	}
	fmt.Fprintf(&b, "%s  %-8s  %6s  booked=%t  %s\n",
		c.StartedAt.In(loc).Format("2006-01-02 15:04:05 MST"),
		c.Trigger,
		c.FinishedAt.Sub(c.StartedAt).Round(time.Millisecond),
		c.Booked,
		status)
	for _, a := range c.Attempts {
		result := "ok"
		if !a.Success {
			result = "failed: " + a.Reason
		}
		fmt.Fprintf(&b, "    center=%d slot=%s %s %s  %s\n", a.CenterID, a.SlotID, a.Date, a.Time, result)
	}
	return b.String()
}
