package emergency

import (
	"time"

	"GuardianPath/internal/models"
)

type Stage string

const (
	StageTriggered        Stage = "triggered"
	StageEventCreated     Stage = "event_created"
	StageImageAnalyzed    Stage = "image_analyzed"
	StageLocationEnriched Stage = "location_enriched"
	StagePhotoStored      Stage = "photo_stored"
	StageNotified         Stage = "notified"
	StageProcessed        Stage = "processed"
)

// ProgressEvent reports one finished pipeline stage. OK is false when the
// stage degraded; the pipeline keeps going either way.
type ProgressEvent struct {
	PanicID string    `json:"panicId"`
	UserID  uint      `json:"-"`
	Stage   Stage     `json:"stage"`
	OK      bool      `json:"ok"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`

	// set on StageProcessed
	Elapsed      time.Duration              `json:"-"`
	Notification *models.NotificationResult `json:"-"`
}

// Observer receives progress events from pipeline goroutines. Implementations
// must be safe for concurrent use and must not block.
type Observer interface {
	OnProgress(ev ProgressEvent)
}

type ObserverFunc func(ev ProgressEvent)

func (f ObserverFunc) OnProgress(ev ProgressEvent) { f(ev) }

func (o *Orchestrator) Subscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, obs)
}

func (o *Orchestrator) emit(ev ProgressEvent) {
	if ev.At.IsZero() {
		ev.At = o.now()
	}
	o.mu.RLock()
	observers := o.observers
	o.mu.RUnlock()
	for _, obs := range observers {
		obs.OnProgress(ev)
	}
}
