package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOnlyTopicSubscribers(t *testing.T) {
	h := NewHub(time.Minute)
	mine := h.Subscribe("user:7")
	other := h.Subscribe("user:8")
	defer mine.Close()
	defer other.Close()

	n, err := h.Publish("user:7", "progress", map[string]string{"stage": "notified"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case frame := <-mine.Events():
		assert.Equal(t, "id: 1\nevent: progress\ndata: {\"stage\":\"notified\"}\n\n", frame)
	default:
		t.Fatal("subscriber did not receive the frame")
	}
	assert.Empty(t, other.Events())
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := NewHub(0)
	s := h.Subscribe("t")
	defer s.Close()
	for i := 0; i < bufferSize; i++ {
		_, _ = h.Publish("t", "", i)
	}
	n, err := h.Publish("t", "", "overflow")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, s.Events(), bufferSize)
}

func TestCloseUnsubscribes(t *testing.T) {
	h := NewHub(0)
	s := h.Subscribe("a", "b")
	assert.Equal(t, 1, h.Subscribers("a"))
	s.Close()
	s.Close()
	assert.Zero(t, h.Subscribers("a"))
	assert.Empty(t, h.topics)
}

func TestServeStreamsFrames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub(time.Minute)
	r := gin.New()
	r.GET("/stream", func(c *gin.Context) { h.Serve(c, "user:1") })

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool { return h.Subscribers("user:1") == 1 }, time.Second, 5*time.Millisecond)
	_, err := h.Publish("user:1", "progress", map[string]bool{"ok": true})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "retry: 5000\n\n"))
	assert.Contains(t, body, "event: progress\ndata: {\"ok\":true}\n\n")
	assert.Zero(t, h.Subscribers("user:1"))
}
