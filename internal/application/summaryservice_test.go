package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/timepanel/internal/config"
	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

type summaryTestStore struct {
	recordingStore

	processTotals []model.GroupTotal
	domainTotals  []model.GroupTotal
	sumErr        error
}

func (s *summaryTestStore) SumByProcess(_ context.Context, _, _ time.Time) ([]model.GroupTotal, error) {
	if s.sumErr != nil {
		return nil, s.sumErr
	}
	return s.processTotals, nil
}

func (s *summaryTestStore) SumByDomain(_ context.Context, _, _ time.Time) ([]model.GroupTotal, error) {
	if s.sumErr != nil {
		return nil, s.sumErr
	}
	return s.domainTotals, nil
}

func TestSummaryService_AppSummaries(t *testing.T) {
	store := &summaryTestStore{
		processTotals: []model.GroupTotal{
			{Name: "code", TotalSeconds: 3000},
			{Name: "chrome", TotalSeconds: 1000},
		},
	}
	svc := NewSummaryService(store)

	apps, err := svc.AppSummaries(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, apps, 2)

	assert.Equal(t, "code", apps[0].ProcessName)
	assert.InDelta(t, 75.0, apps[0].Percentage, 0.001)
	assert.Equal(t, "chrome", apps[1].ProcessName)
	assert.InDelta(t, 25.0, apps[1].Percentage, 0.001)
	assert.InDelta(t, 100.0, apps[0].Percentage+apps[1].Percentage, 0.001)
}

func TestSummaryService_DomainSummariesOwnPercentageBase(t *testing.T) {
	store := &summaryTestStore{
		domainTotals: []model.GroupTotal{
			{Name: "github.com", TotalSeconds: 600},
			{Name: "example.org", TotalSeconds: 200},
		},
	}
	svc := NewSummaryService(store)

	domains, err := svc.DomainSummaries(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, domains, 2)

	// Percentages are relative to domain time only, not total tracked time.
	assert.InDelta(t, 75.0, domains[0].Percentage, 0.001)
	assert.InDelta(t, 25.0, domains[1].Percentage, 0.001)
}

func TestSummaryService_EmptyRangeHasNoPercentages(t *testing.T) {
	svc := NewSummaryService(&summaryTestStore{})

	apps, err := svc.AppSummaries(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestSummaryService_StoreErrorPropagates(t *testing.T) {
	sentinel := errors.New("db locked")
	svc := NewSummaryService(&summaryTestStore{sumErr: sentinel})

	_, err := svc.AppSummaries(context.Background(), time.Now(), time.Now())
	require.ErrorIs(t, err, sentinel)
}

func TestSummaryService_BuildUploadPayloadFiltersShortEntries(t *testing.T) {
	store := &summaryTestStore{
		processTotals: []model.GroupTotal{
			{Name: "code", TotalSeconds: 3000},
			{Name: "blip", TotalSeconds: 30},
		},
		domainTotals: []model.GroupTotal{
			{Name: "github.com", TotalSeconds: 600},
			{Name: "ads.example", TotalSeconds: 5},
		},
	}
	svc := NewSummaryService(store)

	settings := &config.UploadConfig{
		UserID:             "u-1",
		MachineName:        "workstation",
		MinDurationSeconds: 60,
	}
	day := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	payload, err := svc.BuildUploadPayload(context.Background(), day, settings)
	require.NoError(t, err)

	assert.Equal(t, "u-1", payload.UserID)
	assert.Equal(t, "workstation", payload.MachineName)
	assert.Equal(t, "2026-03-10", payload.Date)
	assert.EqualValues(t, 60, payload.MinDurationSeconds)

	require.Len(t, payload.Apps, 1)
	assert.Equal(t, "code", payload.Apps[0].ProcessName)
	require.Len(t, payload.Domains, 1)
	assert.Equal(t, "github.com", payload.Domains[0].Domain)
}

func TestDayRange(t *testing.T) {
	from, to := DayRange(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC))

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), to)
}
