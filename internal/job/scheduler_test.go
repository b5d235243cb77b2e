package job

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int64
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return nil
}

func TestSchedulerRegisterValidatesSpec(t *testing.T) {
	s := NewScheduler(nil)
	job := &countingJob{}

	_, err := s.Register("", job)
	assert.Error(t, err)
	_, err = s.Register("@hourly", nil)
	assert.Error(t, err)
	_, err = s.Register("not a cron spec", job)
	assert.Error(t, err)
}

func TestSchedulerAcceptsSecondsAndDescriptors(t *testing.T) {
	s := NewScheduler(nil)
	job := &countingJob{}

	// Six-field spec with seconds.
	_, err := s.Register("*/5 * * * * *", job)
	assert.NoError(t, err)
	// Standard five-field spec.
	_, err = s.Register("0 3 * * *", job)
	assert.NoError(t, err)
	_, err = s.Register("@every 1h", job)
	assert.NoError(t, err)
}

func TestSchedulerRunsRegisteredJob(t *testing.T) {
	s := NewScheduler(nil)
	job := &countingJob{}
	_, err := s.Register("* * * * * *", job)
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for job.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job did not fire")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestSchedulerStopWaitsForJobs(t *testing.T) {
	s := NewScheduler(nil)
	_, err := s.Register("@every 1s", &countingJob{})
	require.NoError(t, err)

	s.Start()
	done := s.Stop()
	select {
	case <-done.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not drain")
	}

	// Stopping an idle scheduler is a no-op.
	assert.NotNil(t, s.Stop())
}
