package emergency

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"GuardianPath/internal/models"
	"GuardianPath/pkg/scheduler"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStale struct {
	before time.Time
	events []models.PanicEvent
	err    error
}

func (f *fakeStale) StaleActiveEvents(_ context.Context, before time.Time) ([]models.PanicEvent, error) {
	f.before = before
	return f.events, f.err
}

type gauge struct{ n int }

func (g *gauge) SetStaleActiveEvents(n int) { g.n = n }

func TestSweeperReportsStaleEvents(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeStale{events: []models.PanicEvent{{PanicID: "panic_a"}, {PanicID: "panic_b"}}}
	g := &gauge{n: -1}
	core, logs := observer.New(zap.WarnLevel)

	var job scheduler.Job = &Sweeper{Source: src, Gauge: g, MaxAge: 10 * time.Minute, Logger: zap.New(core), Now: func() time.Time { return now }}
	job.Run(context.Background())

	assert.Equal(t, now.Add(-10*time.Minute), src.before)
	assert.Equal(t, 2, g.n)
	entries := logs.FilterMessage("panic event stuck in active state").All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "panic_a", entries[0].ContextMap()["panic_id"])
	}
}

func TestSweeperLeavesGaugeOnError(t *testing.T) {
	g := &gauge{n: 7}
	s := &Sweeper{Source: &fakeStale{err: stderrors.New("db closed")}, Gauge: g, MaxAge: time.Minute}
	s.Run(context.Background())
	assert.Equal(t, 7, g.n)
}
