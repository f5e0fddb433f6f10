package listeners

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"GuardianPath/internal/emergency"
	"GuardianPath/pkg/metrics"
	"GuardianPath/pkg/notification"
	"GuardianPath/pkg/sse"

	"go.uber.org/zap"
)

const progressEvent = "progress"

// UserGroup is the SSE group a user's progress events are published to.
func UserGroup(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

// PanicListener fans pipeline progress out to the live stream, metrics and
// the ops broadcast channel. Any of those may be nil.
type PanicListener struct {
	hub         *sse.Hub
	metrics     *metrics.Metrics
	broadcaster *notification.Broadcaster
	log         *zap.Logger

	wg sync.WaitGroup
}

func InitPanicListeners(o *emergency.Orchestrator, hub *sse.Hub, m *metrics.Metrics, b *notification.Broadcaster, log *zap.Logger) *PanicListener {
	if log == nil {
		log = zap.NewNop()
	}
	l := &PanicListener{hub: hub, metrics: m, broadcaster: b, log: log}
	o.Subscribe(l)
	return l
}

func (l *PanicListener) OnProgress(ev emergency.ProgressEvent) {
	if l.hub != nil {
		if _, err := l.hub.Publish(UserGroup(ev.UserID), progressEvent, ev); err != nil {
			l.log.Warn("publish progress", zap.String("panic_id", ev.PanicID), zap.Error(err))
		}
	}
	if l.metrics != nil {
		l.record(ev)
	}
	if ev.Stage == emergency.StageProcessed && l.broadcaster != nil {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.broadcast(ev)
		}()
	}
}

func (l *PanicListener) record(ev emergency.ProgressEvent) {
	l.metrics.RecordStage(string(ev.Stage), ev.OK)
	switch ev.Stage {
	case emergency.StageTriggered:
		l.metrics.RecordTrigger("accepted")
	case emergency.StageProcessed:
		l.metrics.ObservePipeline(ev.Elapsed)
		if ev.Notification != nil {
			l.metrics.AddEmailsSent(ev.Notification.EmailsSent)
		}
	}
}

func (l *PanicListener) broadcast(ev emergency.ProgressEvent) {
	sent := 0
	if ev.Notification != nil {
		sent = ev.Notification.EmailsSent
	}
	msg := fmt.Sprintf("panic %s processed in %s, %d alert emails sent", ev.PanicID, ev.Elapsed.Round(time.Millisecond), sent)
	for _, err := range l.broadcaster.Broadcast("GuardianPath panic", msg) {
		l.log.Warn("ops broadcast failed", zap.String("panic_id", ev.PanicID), zap.Error(err))
	}
}

// Wait blocks until in-flight broadcasts finish.
func (l *PanicListener) Wait() { l.wg.Wait() }
