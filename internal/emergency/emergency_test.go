package emergency

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"GuardianPath/internal/dispatch"
	"GuardianPath/internal/models"
	"GuardianPath/internal/providers"
	"GuardianPath/pkg/errors"
	"GuardianPath/pkg/i18n"
	"GuardianPath/pkg/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testPhoto = "data:image/jpeg;base64,/9j/4AAQ"

type fakeContacts struct {
	contacts []models.EmergencyContact
	err      error
}

func (f *fakeContacts) ActiveContacts(context.Context, uint) ([]models.EmergencyContact, error) {
	return f.contacts, f.err
}

type memEvents struct {
	mu        sync.Mutex
	events    map[string]*models.PanicEvent
	creates   int
	updates   int
	createErr error
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[string]*models.PanicEvent{}}
}

func (m *memEvents) CreateEvent(_ context.Context, ev *models.PanicEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	cp := *ev
	m.events[ev.PanicID] = &cp
	return nil
}

func (m *memEvents) UpdateEvent(_ context.Context, panicID string, patch models.EventPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	ev, ok := m.events[panicID]
	if !ok {
		return models.ErrEventNotFound
	}
	patch.Apply(ev)
	return nil
}

func (m *memEvents) get(panicID string) *models.PanicEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[panicID]
}

type fakeVision struct {
	analysis *models.ImageAnalysis
	err      error
}

func (f *fakeVision) AnalyzeImage(context.Context, string) (*models.ImageAnalysis, error) {
	return f.analysis, f.err
}

type fakeGeo struct {
	hospitals []providers.PlaceCandidate
	police    []providers.PlaceCandidate
	address   *providers.AddressCandidate
	policeErr error
}

func (f *fakeGeo) FindNearbyPlaces(_ context.Context, _ models.Location, category string) ([]providers.PlaceCandidate, error) {
	if category == providers.CategoryPolice {
		return f.police, f.policeErr
	}
	return f.hospitals, nil
}

func (f *fakeGeo) ReverseGeocode(context.Context, models.Location) (*providers.AddressCandidate, error) {
	return f.address, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	calls    int
	payload  dispatch.AlertPayload
	ctxErr   error
	contacts []models.EmergencyContact
}

func (r *recordingNotifier) Dispatch(ctx context.Context, payload dispatch.AlertPayload, contacts []models.EmergencyContact) *models.NotificationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.payload = payload
	r.contacts = contacts
	r.ctxErr = ctx.Err()
	return &models.NotificationResult{Success: true, ContactsNotified: len(contacts), EmailsSent: len(contacts), Message: "ok"}
}

type fakePhotos struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakePhotos) SavePhoto(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return "https://photos.example.com/" + key, nil
}

func dist(v float64) *float64 { return &v }

func testGeo() *fakeGeo {
	return &fakeGeo{
		hospitals: []providers.PlaceCandidate{
			{Name: "Far", Address: "3 Far St", Distance: dist(900)},
			{Name: "Near", Address: "1 Near St", Distance: dist(120)},
			{Name: "Mid", Address: "2 Mid St", Distance: dist(450)},
			{Name: "Farther", Address: "4 Far St", Distance: dist(1500)},
		},
		police:  []providers.PlaceCandidate{{Name: "1st Precinct", Distance: dist(300)}},
		address: &providers.AddressCandidate{FreeformAddress: "City Hall, New York, NY"},
	}
}

func testTranslator(t *testing.T) *i18n.I18nSupport {
	t.Helper()
	tr, err := i18n.NewI18nSupport("en")
	require.NoError(t, err)
	return tr
}

func newTestOrchestrator(t *testing.T, deps Deps) *Orchestrator {
	t.Helper()
	if deps.Contacts == nil {
		deps.Contacts = &fakeContacts{contacts: []models.EmergencyContact{{Name: "C", Email: "c@x.com", IsActive: true}}}
	}
	if deps.Events == nil {
		deps.Events = newMemEvents()
	}
	if deps.Notifier == nil {
		deps.Notifier = &recordingNotifier{}
	}
	if deps.Translator == nil {
		deps.Translator = testTranslator(t)
	}
	o, err := New(deps)
	require.NoError(t, err)
	return o
}

var testUser = Identity{UserID: 1, Email: "u@x.com", Name: "Pat"}

func TestHandleTriggerFullScenario(t *testing.T) {
	events := newMemEvents()
	d := dispatch.NewDispatcher(notification.NewSimulatedTransport(zap.NewNop()), nil, nil)
	o := newTestOrchestrator(t, Deps{
		Events:   events,
		Notifier: d,
		Vision:   &fakeVision{analysis: &models.ImageAnalysis{Description: "a dark street", Confidence: 0.8}},
		Geo:      testGeo(),
	})

	var mu sync.Mutex
	var stages []Stage
	o.Subscribe(ObserverFunc(func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, ev.Stage)
	}))

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
		Location:  &models.Location{Lat: 40.7128, Lng: -74.0060},
		Timestamp: "2024-01-01T00:00:00Z",
		Photo:     testPhoto,
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Regexp(t, `^panic_\d+_[0-9a-z]{9}$`, resp.PanicID)
	assert.Equal(t, "a dark street", resp.ImageAnalysis.Description)
	require.NotNil(t, resp.SafetyData)
	assert.Equal(t, "City Hall, New York, NY", resp.SafetyData.CurrentAddress)
	require.NotNil(t, resp.NotificationResult)
	assert.True(t, resp.NotificationResult.Success)
	assert.Equal(t, 1, resp.NotificationResult.EmailsSent)
	assert.Equal(t, 1, resp.NotificationResult.ContactsNotified)
	assert.Equal(t, "Emergency protocol activated successfully", resp.Message)
	assert.Equal(t, []string{
		"Emergency contacts have been notified",
		"Your location has been shared",
		"Nearby safe places identified",
		"Photo analysis completed",
		"Stay calm and move to a safe location",
	}, resp.Instructions)

	ev := events.get(resp.PanicID)
	require.NotNil(t, ev)
	assert.Equal(t, models.StatusProcessed, ev.Status)
	assert.True(t, ev.PhotoPresent)
	assert.NotNil(t, ev.NotificationResult)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, StageTriggered, stages[0])
	assert.Equal(t, StageEventCreated, stages[1])
	assert.Equal(t, StageProcessed, stages[len(stages)-1])
	assert.ElementsMatch(t, []Stage{
		StageTriggered, StageEventCreated, StageImageAnalyzed, StageLocationEnriched, StageNotified, StageProcessed,
	}, stages)
}

func TestHandleTriggerRejections(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		events := newMemEvents()
		o := newTestOrchestrator(t, Deps{Events: events})
		_, err := o.HandleTrigger(context.Background(), Identity{}, TriggerRequest{})
		assert.True(t, errors.Is(err, ErrUnauthenticated))
		assert.Equal(t, 401, errors.GetCode(err))
		assert.Zero(t, events.creates)
	})

	t.Run("no contacts", func(t *testing.T) {
		events := newMemEvents()
		n := &recordingNotifier{}
		o := newTestOrchestrator(t, Deps{Events: events, Notifier: n, Contacts: &fakeContacts{}})
		_, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
			Location: &models.Location{Lat: 1, Lng: 2},
		})
		assert.True(t, errors.Is(err, ErrNoContacts))
		assert.Equal(t, 400, errors.GetCode(err))
		assert.Zero(t, events.creates, "no event before contacts are known")
		assert.Zero(t, n.calls)
	})

	t.Run("contact lookup fails", func(t *testing.T) {
		o := newTestOrchestrator(t, Deps{Contacts: &fakeContacts{err: stderrors.New("db down")}})
		_, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{})
		require.Error(t, err)
		assert.Equal(t, 500, errors.GetCode(err))
	})
}

func TestVisionFailureYieldsMarker(t *testing.T) {
	n := &recordingNotifier{}
	o := newTestOrchestrator(t, Deps{
		Notifier: n,
		Vision:   &fakeVision{err: stderrors.New("503")},
	})

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{Photo: testPhoto})
	require.NoError(t, err)
	require.NotNil(t, resp.ImageAnalysis)
	assert.Equal(t, "Failed to analyze image", resp.ImageAnalysis.Error)
	assert.Nil(t, resp.SafetyData, "no location means no enrichment")
	assert.Contains(t, resp.Instructions, "Photo captured but could not be analyzed")
	assert.Contains(t, resp.Instructions, "Location unavailable. Tell responders where you are")
	assert.Equal(t, 1, n.calls, "notification still goes out")
	assert.True(t, n.payload.ImageAnalysis.Failed())
}

func TestUnconfiguredProvidersBehaveLikeFailures(t *testing.T) {
	o := newTestOrchestrator(t, Deps{})
	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
		Location: &models.Location{Lat: 40.7128, Lng: -74.0060},
		Photo:    testPhoto,
	})
	require.NoError(t, err)
	assert.Equal(t, "Failed to analyze image", resp.ImageAnalysis.Error)
	assert.Equal(t, "Failed to get safety information", resp.SafetyData.Error)
	assert.Empty(t, resp.SafetyData.NearbyHospitals)
}

func TestLocationEnrichmentFailsAsUnit(t *testing.T) {
	geo := testGeo()
	geo.policeErr = stderrors.New("timeout")
	o := newTestOrchestrator(t, Deps{Geo: geo})

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
		Location: &models.Location{Lat: 40.7128, Lng: -74.0060},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SafetyData)
	assert.True(t, resp.SafetyData.Failed())
	assert.Empty(t, resp.SafetyData.NearbyHospitals, "no partial data survives")
	assert.Empty(t, resp.SafetyData.CurrentAddress)
	assert.NotContains(t, resp.Instructions, "Nearby safe places identified")
}

func TestClosestPlaces(t *testing.T) {
	tests := []struct {
		name  string
		in    []providers.PlaceCandidate
		names []string
		dists []float64
	}{
		{
			name:  "top three ascending",
			in:    testGeo().hospitals,
			names: []string{"Near", "Mid", "Far"},
			dists: []float64{120, 450, 900},
		},
		{
			name:  "defaults applied",
			in:    []providers.PlaceCandidate{{Distance: dist(10)}, {Name: "X"}},
			names: []string{"X", "Hospital"},
			dists: []float64{0, 10},
		},
		{
			name:  "empty",
			in:    nil,
			names: []string{},
			dists: []float64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := closestPlaces(tt.in, "Hospital")
			names := make([]string, 0, len(got))
			dists := make([]float64, 0, len(got))
			for _, p := range got {
				names = append(names, p.Name)
				dists = append(dists, p.Distance)
				assert.NotEmpty(t, p.Address)
			}
			assert.Equal(t, tt.names, names)
			assert.Equal(t, tt.dists, dists)
		})
	}
}

func TestStoreFailureDegradesButCompletes(t *testing.T) {
	events := newMemEvents()
	events.createErr = stderrors.New("disk full")
	n := &recordingNotifier{}
	o := newTestOrchestrator(t, Deps{Events: events, Notifier: n, Geo: testGeo()})

	var mu sync.Mutex
	outcomes := map[Stage]bool{}
	o.Subscribe(ObserverFunc(func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[ev.Stage] = ev.OK
	}))

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
		Location: &models.Location{Lat: 40.7128, Lng: -74.0060},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, n.calls)
	assert.Equal(t, 2, events.creates, "finalization retries as a full snapshot")
	assert.Zero(t, events.updates, "no checkpoints without a row")

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, outcomes[StageEventCreated])
	assert.False(t, outcomes[StageProcessed])
	assert.True(t, outcomes[StageNotified])
}

func TestSnapshotCreateAfterFailedInitialCreate(t *testing.T) {
	events := &flakyEvents{memEvents: newMemEvents(), failFirst: true}
	o := newTestOrchestrator(t, Deps{Events: events, Geo: testGeo()})

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
		Location: &models.Location{Lat: 40.7128, Lng: -74.0060},
	})
	require.NoError(t, err)

	ev := events.get(resp.PanicID)
	require.NotNil(t, ev)
	assert.Equal(t, models.StatusProcessed, ev.Status)
	require.NotNil(t, ev.SafetyData)
	assert.Equal(t, "City Hall, New York, NY", ev.SafetyData.CurrentAddress)
	assert.NotNil(t, ev.NotificationResult)
}

type flakyEvents struct {
	*memEvents
	failFirst bool
}

func (f *flakyEvents) CreateEvent(ctx context.Context, ev *models.PanicEvent) error {
	f.mu.Lock()
	fail := f.failFirst
	f.failFirst = false
	f.mu.Unlock()
	if fail {
		return stderrors.New("locked")
	}
	return f.memEvents.CreateEvent(ctx, ev)
}

// checkpointFailingEvents rejects every update that does not carry a status.
type checkpointFailingEvents struct {
	*memEvents
	rejected int
}

func (c *checkpointFailingEvents) UpdateEvent(ctx context.Context, panicID string, patch models.EventPatch) error {
	if patch.Status == nil {
		c.mu.Lock()
		c.rejected++
		c.mu.Unlock()
		return stderrors.New("deadlock detected")
	}
	return c.memEvents.UpdateEvent(ctx, panicID, patch)
}

func TestFinalizeRewritesEnrichmentAfterFailedCheckpoints(t *testing.T) {
	events := &checkpointFailingEvents{memEvents: newMemEvents()}
	photos := &fakePhotos{}
	o := newTestOrchestrator(t, Deps{
		Events: events,
		Photos: photos,
		Vision: &fakeVision{analysis: &models.ImageAnalysis{Description: "dark parking lot"}},
		Geo:    testGeo(),
	})

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
		Location: &models.Location{Lat: 40.7128, Lng: -74.0060},
		Photo:    testPhoto,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, events.rejected)

	ev := events.get(resp.PanicID)
	require.NotNil(t, ev)
	assert.Equal(t, models.StatusProcessed, ev.Status)
	require.NotNil(t, ev.ImageAnalysis)
	assert.Equal(t, "dark parking lot", ev.ImageAnalysis.Description)
	require.NotNil(t, ev.SafetyData)
	assert.Equal(t, "City Hall, New York, NY", ev.SafetyData.CurrentAddress)
	assert.Equal(t, resp.PhotoURL, ev.PhotoURL)
	assert.NotEmpty(t, ev.PhotoURL)
	assert.NotNil(t, ev.NotificationResult)
}

func TestFinalizeKeepsFailureMarkers(t *testing.T) {
	events := &checkpointFailingEvents{memEvents: newMemEvents()}
	geo := testGeo()
	geo.policeErr = stderrors.New("maps down")
	o := newTestOrchestrator(t, Deps{
		Events: events,
		Vision: &fakeVision{err: stderrors.New("vision down")},
		Geo:    geo,
	})

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
		Location: &models.Location{Lat: 1, Lng: 2},
		Photo:    testPhoto,
	})
	require.NoError(t, err)

	ev := events.get(resp.PanicID)
	require.NotNil(t, ev)
	assert.Equal(t, models.StatusProcessed, ev.Status)
	assert.True(t, ev.ImageAnalysis.Failed())
	assert.True(t, ev.SafetyData.Failed())
}

func TestPhotoStoredUnderPanicKey(t *testing.T) {
	photos := &fakePhotos{}
	events := newMemEvents()
	o := newTestOrchestrator(t, Deps{Events: events, Photos: photos, Vision: &fakeVision{analysis: &models.ImageAnalysis{}}})

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{Photo: testPhoto})
	require.NoError(t, err)

	require.Len(t, photos.keys, 1)
	key := photos.keys[0]
	assert.Regexp(t, `^panic/`+resp.PanicID+`/[0-9a-f-]{36}\.jpg$`, key)
	assert.Equal(t, "https://photos.example.com/"+key, resp.PhotoURL)
	assert.Equal(t, resp.PhotoURL, events.get(resp.PanicID).PhotoURL)
}

func TestCancelledRequestStillNotifies(t *testing.T) {
	n := &recordingNotifier{}
	o := newTestOrchestrator(t, Deps{Notifier: n})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.HandleTrigger(ctx, testUser, TriggerRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, n.calls)
	assert.NoError(t, n.ctxErr)
}

func TestDeviceRecordedFromUserAgent(t *testing.T) {
	events := newMemEvents()
	o := newTestOrchestrator(t, Deps{Events: events})

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	})
	require.NoError(t, err)
	ev := events.get(resp.PanicID)
	require.NotNil(t, ev.Device)
	assert.True(t, ev.Device.Mobile)
	assert.Contains(t, ev.Device.Browser, "Safari")
}

func TestConcurrentTriggersGetUniqueIDs(t *testing.T) {
	events := newMemEvents()
	o := newTestOrchestrator(t, Deps{Events: events, Geo: testGeo()})

	const n = 25
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{
				Location: &models.Location{Lat: 40.7128, Lng: -74.0060},
			})
			if assert.NoError(t, err) {
				ids[i] = resp.PanicID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, events.events, n)
}

func TestFixedClockAndIDs(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var got []ProgressEvent
	o := newTestOrchestrator(t, Deps{
		Now:   func() time.Time { return fixed },
		NewID: func(time.Time) string { return "panic_fixed" },
	})
	o.Subscribe(ObserverFunc(func(ev ProgressEvent) { got = append(got, ev) }))

	resp, err := o.HandleTrigger(context.Background(), testUser, TriggerRequest{})
	require.NoError(t, err)
	assert.Equal(t, "panic_fixed", resp.PanicID)
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, StageProcessed, last.Stage)
	assert.Equal(t, fixed, last.At)
	assert.Zero(t, last.Elapsed)
	assert.Equal(t, uint(1), last.UserID)
	require.NotNil(t, last.Notification)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}
