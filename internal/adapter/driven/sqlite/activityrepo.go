package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ActivityStore = (*ActivityRepo)(nil)

// timeFormat is the canonical stored form of all timestamps. UTC RFC 3339
// sorts lexicographically, which the start_time index relies on for range scans.
const timeFormat = time.RFC3339

// ActivityRepo is the SQLite implementation of the ActivityStore port interface.
type ActivityRepo struct {
	db *DB
}

// NewActivityRepo creates a new ActivityRepo backed by the given DB.
func NewActivityRepo(db *DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Insert persists one finished activity record and returns the record with
// its assigned identifier. An empty domain is stored as NULL so domain
// summaries can exclude non-browser rows at the index level.
func (r *ActivityRepo) Insert(ctx context.Context, record model.ActivityRecord) (model.ActivityRecord, error) {
	const query = `INSERT INTO activities (process_name, window_title, domain, start_time, end_time, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?)`

	var domain any
	if record.Domain != "" {
		domain = record.Domain
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		record.ProcessName,
		record.WindowTitle,
		domain,
		record.StartTime.UTC().Format(timeFormat),
		record.EndTime.UTC().Format(timeFormat),
		record.Duration,
	)
	if err != nil {
		return model.ActivityRecord{}, fmt.Errorf("insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.ActivityRecord{}, fmt.Errorf("insert activity id: %w", err)
	}

	record.ID = id
	return record, nil
}

// GetByRange returns records whose start time falls in [from, to), ordered by
// start time ascending.
func (r *ActivityRepo) GetByRange(ctx context.Context, from, to time.Time) ([]model.ActivityRecord, error) {
	const query = `SELECT id, process_name, window_title, domain, start_time, end_time, duration_seconds
		FROM activities
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time ASC`

	rows, err := r.db.Reader.QueryContext(ctx, query,
		from.UTC().Format(timeFormat),
		to.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("query activities by range: %w", err)
	}
	defer rows.Close()

	var records []model.ActivityRecord
	for rows.Next() {
		record, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return records, nil
}

// GetByID returns a single record by identifier, or nil when no such record exists.
func (r *ActivityRepo) GetByID(ctx context.Context, id int64) (*model.ActivityRecord, error) {
	const query = `SELECT id, process_name, window_title, domain, start_time, end_time, duration_seconds
		FROM activities WHERE id = ?`

	record, err := scanActivity(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity %d: %w", id, err)
	}

	return record, nil
}

// SumByProcess returns per-process duration totals for records starting in
// [from, to). Rows are ordered by total descending; equal totals tie-break by
// ascending process name so summaries are deterministic.
func (r *ActivityRepo) SumByProcess(ctx context.Context, from, to time.Time) ([]model.GroupTotal, error) {
	const query = `SELECT process_name, SUM(duration_seconds) AS total
		FROM activities
		WHERE start_time >= ? AND start_time < ?
		GROUP BY process_name
		ORDER BY total DESC, process_name ASC`

	return r.sumGroups(ctx, query, from, to)
}

// SumByDomain returns per-domain duration totals for records starting in
// [from, to), restricted to rows with a non-null domain. Ordering matches
// SumByProcess.
func (r *ActivityRepo) SumByDomain(ctx context.Context, from, to time.Time) ([]model.GroupTotal, error) {
	const query = `SELECT domain, SUM(duration_seconds) AS total
		FROM activities
		WHERE start_time >= ? AND start_time < ? AND domain IS NOT NULL
		GROUP BY domain
		ORDER BY total DESC, domain ASC`

	return r.sumGroups(ctx, query, from, to)
}

func (r *ActivityRepo) sumGroups(ctx context.Context, query string, from, to time.Time) ([]model.GroupTotal, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query,
		from.UTC().Format(timeFormat),
		to.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("query grouped totals: %w", err)
	}
	defer rows.Close()

	var totals []model.GroupTotal
	for rows.Next() {
		var gt model.GroupTotal
		if err := rows.Scan(&gt.Name, &gt.TotalSeconds); err != nil {
			return nil, fmt.Errorf("scan grouped total: %w", err)
		}
		totals = append(totals, gt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grouped totals: %w", err)
	}

	return totals, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (*model.ActivityRecord, error) {
	var record model.ActivityRecord
	var domain sql.NullString
	var startTime, endTime string

	err := s.Scan(&record.ID, &record.ProcessName, &record.WindowTitle, &domain, &startTime, &endTime, &record.Duration)
	if err != nil {
		return nil, err
	}

	record.Domain = domain.String

	record.StartTime, err = parseTime(startTime)
	if err != nil {
		return nil, fmt.Errorf("parse start_time: %w", err)
	}

	record.EndTime, err = parseTime(endTime)
	if err != nil {
		return nil, fmt.Errorf("parse end_time: %w", err)
	}

	return &record, nil
}

// parseTime tries multiple SQLite datetime formats. RFC 3339 is canonical;
// the others accommodate rows written by external tooling.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
