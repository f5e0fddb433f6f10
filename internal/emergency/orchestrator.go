package emergency

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"GuardianPath/internal/dispatch"
	"GuardianPath/internal/models"
	"GuardianPath/internal/providers"
	"GuardianPath/pkg/errors"
	"GuardianPath/pkg/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnauthenticated = errors.WithCode(http.StatusUnauthorized, "Authentication required")
	ErrNoContacts      = errors.WithCode(http.StatusBadRequest, "No active emergency contacts")
)

// Identity is the verified caller supplied by the auth boundary.
type Identity struct {
	UserID uint
	Email  string
	Name   string
}

type TriggerRequest struct {
	Location  *models.Location `json:"location"`
	Timestamp string           `json:"timestamp"`
	Photo     string           `json:"photo,omitempty"`

	UserAgent string `json:"-"`
	Lang      string `json:"-"`
}

type PanicResponse struct {
	Success            bool                       `json:"success"`
	PanicID            string                     `json:"panicId"`
	Location           *models.Location           `json:"location"`
	Timestamp          string                     `json:"timestamp"`
	ImageAnalysis      *models.ImageAnalysis      `json:"imageAnalysis"`
	SafetyData         *models.SafetyData         `json:"safetyData"`
	NotificationResult *models.NotificationResult `json:"notificationResult"`
	PhotoURL           string                     `json:"photoUrl,omitempty"`
	Message            string                     `json:"message"`
	Instructions       []string                   `json:"instructions"`
}

type ContactSource interface {
	ActiveContacts(ctx context.Context, userID uint) ([]models.EmergencyContact, error)
}

type EventStore interface {
	CreateEvent(ctx context.Context, ev *models.PanicEvent) error
	UpdateEvent(ctx context.Context, panicID string, patch models.EventPatch) error
}

type Notifier interface {
	Dispatch(ctx context.Context, payload dispatch.AlertPayload, contacts []models.EmergencyContact) *models.NotificationResult
}

type PhotoStore interface {
	SavePhoto(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type Translator interface {
	T(lang, key string, data map[string]interface{}) string
}

// Deps are the orchestrator's collaborators. Vision, Geo, Photos and
// Translator are optional.
type Deps struct {
	Contacts   ContactSource
	Events     EventStore
	Notifier   Notifier
	Vision     providers.VisionAnalyzer
	Geo        providers.GeoLocator
	Photos     PhotoStore
	Translator Translator
	Logger     *zap.Logger
	Now        func() time.Time
	NewID      func(time.Time) string
}

type Orchestrator struct {
	deps Deps

	mu        sync.RWMutex
	observers []Observer
}

func New(deps Deps) (*Orchestrator, error) {
	if deps.Contacts == nil || deps.Events == nil || deps.Notifier == nil {
		return nil, errors.New("emergency: contacts, events and notifier are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = util.NewPanicID
	}
	return &Orchestrator{deps: deps}, nil
}

func (o *Orchestrator) now() time.Time { return o.deps.Now() }

// HandleTrigger runs the panic pipeline for one trigger. Only a missing
// identity, zero active contacts or a failed contact lookup return an error;
// every later failure is reported inside the response.
func (o *Orchestrator) HandleTrigger(ctx context.Context, id Identity, req TriggerRequest) (*PanicResponse, error) {
	if id.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	userKey := strconv.FormatUint(uint64(id.UserID), 10)
	contacts, err := o.deps.Contacts.ActiveContacts(ctx, id.UserID)
	if err != nil {
		return nil, errors.WrapCode(err, http.StatusInternalServerError, "Failed to load emergency contacts").WithContext("user_id", userKey)
	}
	if len(contacts) == 0 {
		return nil, ErrNoContacts.WithContext("user_id", userKey)
	}

	// Contacts must be told even if the caller hangs up mid-pipeline.
	ctx = context.WithoutCancel(ctx)
	start := o.now()
	panicID := o.deps.NewID(start)
	log := o.deps.Logger.With(zap.String("panic_id", panicID), zap.Uint("user_id", id.UserID))

	event := &models.PanicEvent{
		PanicID:      panicID,
		UserID:       id.UserID,
		UserEmail:    id.Email,
		Location:     req.Location,
		Timestamp:    req.Timestamp,
		PhotoPresent: req.Photo != "",
		Status:       models.StatusActive,
		Device:       parseDevice(req.UserAgent),
	}
	o.emit(ProgressEvent{PanicID: panicID, UserID: id.UserID, Stage: StageTriggered, OK: true})
	log.Info("panic triggered",
		zap.Bool("has_location", req.Location != nil),
		zap.Bool("has_photo", event.PhotoPresent),
		zap.Int("contacts", len(contacts)))

	persisted := true
	if err := o.deps.Events.CreateEvent(ctx, event); err != nil {
		persisted = false
		log.Warn("event create failed, continuing without persistence", zap.Error(err))
	}
	o.emit(ProgressEvent{PanicID: panicID, UserID: id.UserID, Stage: StageEventCreated, OK: persisted})

	var (
		analysis *models.ImageAnalysis
		safety   *models.SafetyData
		photoURL string
	)
	var g errgroup.Group
	if req.Photo != "" {
		g.Go(func() error {
			a, err := o.analyzeImage(ctx, req.Photo)
			if err != nil {
				log.Warn("image analysis failed", zap.Error(err))
				a = &models.ImageAnalysis{Error: errImageAnalysis}
			}
			analysis = a
			o.checkpoint(ctx, log, persisted, panicID, models.EventPatch{ImageAnalysis: a})
			o.emit(ProgressEvent{PanicID: panicID, UserID: id.UserID, Stage: StageImageAnalyzed, OK: err == nil})
			return nil
		})
		if o.deps.Photos != nil {
			g.Go(func() error {
				url, err := o.storePhoto(ctx, panicID, req.Photo)
				if err != nil {
					log.Warn("photo upload failed", zap.Error(err))
				} else {
					photoURL = url
					o.checkpoint(ctx, log, persisted, panicID, models.EventPatch{PhotoURL: &url})
				}
				o.emit(ProgressEvent{PanicID: panicID, UserID: id.UserID, Stage: StagePhotoStored, OK: err == nil})
				return nil
			})
		}
	}
	if req.Location != nil {
		loc := *req.Location
		g.Go(func() error {
			s, err := o.enrichLocation(ctx, loc)
			if err != nil {
				log.Warn("location enrichment failed", zap.Error(err))
				s = &models.SafetyData{Error: errSafetyData}
			}
			safety = s
			o.checkpoint(ctx, log, persisted, panicID, models.EventPatch{SafetyData: s})
			o.emit(ProgressEvent{PanicID: panicID, UserID: id.UserID, Stage: StageLocationEnriched, OK: err == nil})
			return nil
		})
	}
	_ = g.Wait()

	result := o.deps.Notifier.Dispatch(ctx, dispatch.AlertPayload{
		PanicID:       panicID,
		User:          dispatch.AlertUser{ID: id.UserID, Name: id.Name, Email: id.Email},
		Location:      req.Location,
		Timestamp:     req.Timestamp,
		ImageAnalysis: analysis,
		SafetyData:    safety,
	}, contacts)
	o.emit(ProgressEvent{PanicID: panicID, UserID: id.UserID, Stage: StageNotified, OK: result.Success, Detail: result.Message})

	status := models.StatusProcessed
	final := models.EventPatch{
		Status:             &status,
		ImageAnalysis:      analysis,
		SafetyData:         safety,
		NotificationResult: result,
	}
	if photoURL != "" {
		final.PhotoURL = &photoURL
	}
	finalized := o.finalize(ctx, log, persisted, event, final)
	elapsed := o.now().Sub(start)
	o.emit(ProgressEvent{
		PanicID:      panicID,
		UserID:       id.UserID,
		Stage:        StageProcessed,
		OK:           finalized,
		Elapsed:      elapsed,
		Notification: result,
	})
	log.Info("panic processed",
		zap.Bool("notified", result.Success),
		zap.Int("emails_sent", result.EmailsSent),
		zap.Duration("elapsed", elapsed))

	return &PanicResponse{
		Success:            true,
		PanicID:            panicID,
		Location:           req.Location,
		Timestamp:          req.Timestamp,
		ImageAnalysis:      analysis,
		SafetyData:         safety,
		NotificationResult: result,
		PhotoURL:           photoURL,
		Message:            o.translate(req.Lang, "panic_activated"),
		Instructions:       o.instructions(req, analysis, safety, result),
	}, nil
}

// checkpoint persists one stage's result. It is skipped when the initial
// create failed. finalize rewrites every enrichment field either way.
func (o *Orchestrator) checkpoint(ctx context.Context, log *zap.Logger, persisted bool, panicID string, patch models.EventPatch) {
	if !persisted {
		return
	}
	if err := o.deps.Events.UpdateEvent(ctx, panicID, patch); err != nil {
		log.Warn("checkpoint failed", zap.Error(err))
	}
}

func (o *Orchestrator) finalize(ctx context.Context, log *zap.Logger, persisted bool, event *models.PanicEvent, patch models.EventPatch) bool {
	if persisted {
		if err := o.deps.Events.UpdateEvent(ctx, event.PanicID, patch); err != nil {
			log.Warn("finalize failed", zap.Error(err))
			return false
		}
		return true
	}

	snapshot := *event
	snapshot.ID = 0
	patch.Apply(&snapshot)
	if err := o.deps.Events.CreateEvent(ctx, &snapshot); err != nil {
		log.Warn("snapshot create failed, event not persisted", zap.Error(err))
		return false
	}
	return true
}

func (o *Orchestrator) translate(lang, key string) string {
	if o.deps.Translator == nil {
		return key
	}
	return o.deps.Translator.T(lang, key, nil)
}

func (o *Orchestrator) instructions(req TriggerRequest, analysis *models.ImageAnalysis, safety *models.SafetyData, result *models.NotificationResult) []string {
	keys := make([]string, 0, 5)
	if result != nil && result.Success {
		keys = append(keys, "instruction_contacts_notified")
	} else {
		keys = append(keys, "instruction_contacts_not_notified")
	}
	if req.Location != nil {
		keys = append(keys, "instruction_location_shared")
		if safety != nil && !safety.Failed() {
			keys = append(keys, "instruction_places_identified")
		}
	} else {
		keys = append(keys, "instruction_location_missing")
	}
	switch {
	case req.Photo == "":
		keys = append(keys, "instruction_photo_missing")
	case analysis.Failed():
		keys = append(keys, "instruction_photo_failed")
	default:
		keys = append(keys, "instruction_photo_analyzed")
	}
	keys = append(keys, "instruction_stay_calm")

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = o.translate(req.Lang, k)
	}
	return out
}
