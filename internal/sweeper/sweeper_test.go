package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorhq/tutor-market-api/internal/models"
	"github.com/tutorhq/tutor-market-api/internal/service"
	"github.com/tutorhq/tutor-market-api/pkg/config"
)

type engineMock struct {
	expireCalls       int
	overdueCalls      int
	autoCompleteCalls int
	lastNow           time.Time
	err               error
}

func (m *engineMock) HandleExpiredReservations(ctx context.Context, now time.Time) (*models.SweepResult, error) {
	m.expireCalls++
	m.lastNow = now
	return &models.SweepResult{Count: 1, AffectedIDs: []string{"r1"}}, m.err
}

func (m *engineMock) MarkReservationsOverdue(ctx context.Context, now time.Time) (*models.SweepResult, error) {
	m.overdueCalls++
	m.lastNow = now
	return &models.SweepResult{}, m.err
}

func (m *engineMock) AutoCompleteOverdueReservations(ctx context.Context, now time.Time) (*models.SweepResult, error) {
	m.autoCompleteCalls++
	m.lastNow = now
	return &models.SweepResult{}, m.err
}

func testConfig() config.SweeperConfig {
	return config.SweeperConfig{
		Enabled:          true,
		Timezone:         "Asia/Taipei",
		ExpireSpec:       "*/10 * * * *",
		OverdueSpec:      "0 * * * *",
		AutoCompleteSpec: "0 0 * * *",
	}
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Timezone = "Not/AZone"
	_, err := New(&engineMock{}, service.NewMetricsService(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestStartRejectsBadSpec(t *testing.T) {
	cfg := testConfig()
	cfg.OverdueSpec = "every hour"
	s, err := New(&engineMock{}, service.NewMetricsService(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	engine := &engineMock{}
	s, err := New(engine, service.NewMetricsService(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.Stop()
}

func TestRunSweepInjectsConfiguredLocation(t *testing.T) {
	engine := &engineMock{}
	s, err := New(engine, service.NewMetricsService(), testConfig(), zap.NewNop())
	require.NoError(t, err)

	s.runSweep("expire", engine.HandleExpiredReservations)
	assert.Equal(t, 1, engine.expireCalls)
	assert.Equal(t, "Asia/Taipei", engine.lastNow.Location().String())
}

func TestRunSweepSurvivesEngineFailure(t *testing.T) {
	engine := &engineMock{err: errors.New("store unreachable")}
	s, err := New(engine, service.NewMetricsService(), testConfig(), zap.NewNop())
	require.NoError(t, err)

	// Must not panic; the failure is logged and left for the next tick.
	s.runSweep("overdue", engine.MarkReservationsOverdue)
	assert.Equal(t, 1, engine.overdueCalls)
}
