package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-predictor/internal/datasource"
)

type fakeRetrainer struct {
	mu     sync.Mutex
	ranges []datasource.DateRange
	err    error
}

func (f *fakeRetrainer) Retrain(_ context.Context, dr datasource.DateRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, dr)
	return f.err
}

func (f *fakeRetrainer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ranges)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRunRetrainUsesTrailingWindow(t *testing.T) {
	r := &fakeRetrainer{}
	s := NewScheduler(r, quietLogger())
	s.now = func() time.Time { return time.Date(2024, 12, 31, 6, 0, 0, 0, time.UTC) }

	require.NoError(t, s.RunRetrain(context.Background(), 30))

	require.Len(t, r.ranges, 1)
	assert.Equal(t, "20241201-20241231", r.ranges[0].String())
}

func TestRunRetrainPropagatesError(t *testing.T) {
	r := &fakeRetrainer{err: errors.New("feed down")}
	s := NewScheduler(r, quietLogger())

	err := s.RunRetrain(context.Background(), 7)
	assert.EqualError(t, err, "feed down")
}

func TestScheduleRetrainValidation(t *testing.T) {
	s := NewScheduler(&fakeRetrainer{}, quietLogger())

	_, err := s.ScheduleRetrain("not a cron", 30)
	assert.Error(t, err)

	_, err = s.ScheduleRetrain("0 6 * * 1", 0)
	assert.Error(t, err)

	assert.Error(t, s.Start(), "no jobs scheduled")
}

func TestSchedulerLifecycle(t *testing.T) {
	r := &fakeRetrainer{}
	s := NewScheduler(r, quietLogger())

	_, err := s.ScheduleRetrain("@every 1s", 7)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.False(t, s.GetNextRun().IsZero())

	_, err = s.ScheduleRetrain("@every 1s", 7)
	assert.Error(t, err, "cannot schedule while running")

	assert.Eventually(t, func() bool { return r.calls() > 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}
