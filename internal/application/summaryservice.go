package application

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ericfisherdev/timepanel/internal/config"
	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// SummaryService answers "how much time per app / per domain" questions over
// a date range. Summaries are ephemeral: recomputed per query, never cached.
type SummaryService struct {
	store driven.ActivityStore
}

// NewSummaryService creates a SummaryService over the given store.
func NewSummaryService(store driven.ActivityStore) *SummaryService {
	return &SummaryService{store: store}
}

// DayRange returns the [start, end) UTC bounds of the day containing t.
func DayRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// ActivitiesForDay returns the day's records ordered by start time.
func (s *SummaryService) ActivitiesForDay(ctx context.Context, day time.Time) ([]model.ActivityRecord, error) {
	from, to := DayRange(day)
	return s.store.GetByRange(ctx, from, to)
}

// AppSummaries computes per-process usage over [from, to). Rows arrive from
// the store ordered by total descending with ascending-name tie-break, and
// percentages are shares of the range's total tracked seconds.
func (s *SummaryService) AppSummaries(ctx context.Context, from, to time.Time) ([]model.AppSummary, error) {
	totals, err := s.store.SumByProcess(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum by process: %w", err)
	}

	grand := grandTotal(totals)
	summaries := make([]model.AppSummary, 0, len(totals))
	for _, gt := range totals {
		summaries = append(summaries, model.AppSummary{
			ProcessName:  gt.Name,
			TotalSeconds: gt.TotalSeconds,
			Percentage:   percentage(gt.TotalSeconds, grand),
		})
	}
	return summaries, nil
}

// DomainSummaries computes per-domain usage over [from, to). Only records
// with a resolved domain contribute; the percentage base is the domain-rows
// total, so browser usage shares sum to 100 on their own.
func (s *SummaryService) DomainSummaries(ctx context.Context, from, to time.Time) ([]model.DomainSummary, error) {
	totals, err := s.store.SumByDomain(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum by domain: %w", err)
	}

	grand := grandTotal(totals)
	summaries := make([]model.DomainSummary, 0, len(totals))
	for _, gt := range totals {
		summaries = append(summaries, model.DomainSummary{
			Domain:       gt.Name,
			TotalSeconds: gt.TotalSeconds,
			Percentage:   percentage(gt.TotalSeconds, grand),
		})
	}
	return summaries, nil
}

// BuildUploadPayload shapes one day's summaries into the collector's payload,
// filtered by the configured minimum duration. The receiver performs no
// further computation.
func (s *SummaryService) BuildUploadPayload(ctx context.Context, day time.Time, settings *config.UploadConfig) (model.UploadPayload, error) {
	from, to := DayRange(day)

	apps, err := s.AppSummaries(ctx, from, to)
	if err != nil {
		return model.UploadPayload{}, err
	}
	domains, err := s.DomainSummaries(ctx, from, to)
	if err != nil {
		return model.UploadPayload{}, err
	}

	minSeconds := settings.MinDurationSeconds

	filteredApps := make([]model.AppSummary, 0, len(apps))
	for _, a := range apps {
		if a.TotalSeconds >= minSeconds {
			filteredApps = append(filteredApps, a)
		}
	}

	filteredDomains := make([]model.DomainSummary, 0, len(domains))
	for _, d := range domains {
		if d.TotalSeconds >= minSeconds {
			filteredDomains = append(filteredDomains, d)
		}
	}

	machineName := settings.MachineName
	if machineName == "" {
		machineName, _ = os.Hostname()
	}

	return model.UploadPayload{
		UserID:             settings.UserID,
		MachineName:        machineName,
		Date:               from.Format("2006-01-02"),
		MinDurationSeconds: minSeconds,
		Apps:               filteredApps,
		Domains:            filteredDomains,
	}, nil
}

func grandTotal(totals []model.GroupTotal) int64 {
	var sum int64
	for _, gt := range totals {
		sum += gt.TotalSeconds
	}
	return sum
}

func percentage(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
