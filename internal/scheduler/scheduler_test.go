package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJobValidatesInput(t *testing.T) {
	svc, err := New(clockwork.NewFakeClock(), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Stop() })

	noop := func(context.Context) error { return nil }

	_, err = svc.AddJob(context.Background(), " ", "0 * * * *", noop)
	assert.ErrorIs(t, err, ErrEmptyJobName)

	_, err = svc.AddJob(context.Background(), "sweeper", "", noop)
	assert.ErrorIs(t, err, ErrEmptyCronExpr)

	_, err = svc.AddJob(context.Background(), "sweeper", "not a cron", noop)
	assert.Error(t, err)

	job, err := svc.AddJob(context.Background(), "sweeper", "0 * * * *", noop)
	require.NoError(t, err)
	assert.Equal(t, "sweeper", job.Name())
}

func TestStopIsIdempotent(t *testing.T) {
	svc, err := New(nil, nil)
	require.NoError(t, err)

	svc.Start()
	assert.NoError(t, svc.Stop())
	assert.NoError(t, svc.Stop())
}
