package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundbrave/search-service/internal/adapters/cache"
	"github.com/fundbrave/search-service/internal/api/handlers"
	"github.com/fundbrave/search-service/internal/domain/entities"
)

type stubClickTracker struct {
	mu     sync.Mutex
	clicks []*entities.ClickEvent
}

func (s *stubClickTracker) TrackClick(click *entities.ClickEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, click)
}

func TestClickHandler_TrackClick_Accepted(t *testing.T) {
	tracker := &stubClickTracker{}
	handler := handlers.NewClickHandler(tracker, nil)

	body := `{"query":"clean water","result_id":"c1","result_type":"campaign","position":3}`
	req := httptest.NewRequest("POST", "/api/search/click", strings.NewReader(body))
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()

	handler.TrackClick(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, tracker.clicks, 1)
	click := tracker.clicks[0]
	assert.Equal(t, "clean water", click.Query)
	assert.Equal(t, entities.EntityTypeCampaign, click.ResultType)
	assert.Equal(t, "u1", click.UserID)
	require.NotNil(t, click.Position)
	assert.Equal(t, 3, *click.Position)
}

func TestClickHandler_TrackClick_Invalid(t *testing.T) {
	tracker := &stubClickTracker{}
	handler := handlers.NewClickHandler(tracker, nil)

	for name, body := range map[string]string{
		"malformed":    `{"query":`,
		"missing id":   `{"query":"water","result_type":"post"}`,
		"only markup":  `{"query":"<>{}","result_id":"p1","result_type":"post"}`,
		"bad type":     `{"query":"water","result_id":"p1","result_type":"video"}`,
		"bad position": `{"query":"water","result_id":"p1","result_type":"post","position":-1}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/search/click", strings.NewReader(body))
			w := httptest.NewRecorder()
			handler.TrackClick(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, tracker.clicks)
}

func TestClickHandler_TrackClick_RateLimit(t *testing.T) {
	lru, err := cache.NewLRUAdapter(16)
	require.NoError(t, err)
	tracker := &stubClickTracker{}
	handler := handlers.NewClickHandler(tracker, lru)

	send := func() int {
		body := `{"query":"water","result_id":"h1","result_type":"hashtag"}`
		req := httptest.NewRequest("POST", "/api/search/click", strings.NewReader(body))
		req.RemoteAddr = "10.0.0.2:1234"
		w := httptest.NewRecorder()
		handler.TrackClick(w, req)
		return w.Code
	}

	for i := 0; i < 120; i++ {
		require.Equal(t, http.StatusAccepted, send())
	}
	assert.Equal(t, http.StatusTooManyRequests, send())
	assert.Len(t, tracker.clicks, 120)
}

func TestClickHandler_TrackClick_SanitizesQuery(t *testing.T) {
	tracker := &stubClickTracker{}
	handler := handlers.NewClickHandler(tracker, nil)

	long := strings.Repeat("a", 300)
	for _, body := range []string{
		`{"query":"<script>Clean;   Water</script>","result_id":"c1","result_type":"campaign"}`,
		`{"query":"` + long + `","result_id":"c1","result_type":"campaign"}`,
	} {
		req := httptest.NewRequest("POST", "/api/search/click", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.TrackClick(w, req)
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	require.Len(t, tracker.clicks, 2)
	assert.Equal(t, "scriptclean waterscript", tracker.clicks[0].Query)
	assert.Len(t, tracker.clicks[1].Query, 200)
}

func TestClickHandler_TrackClick_RateWindowDoesNotSlide(t *testing.T) {
	lru, err := cache.NewLRUAdapter(16)
	require.NoError(t, err)

	for name, handler := range map[string]*handlers.ClickHandler{
		"cache": handlers.NewClickHandler(&stubClickTracker{}, lru),
		"local": handlers.NewClickHandler(&stubClickTracker{}, nil),
	} {
		t.Run(name, func(t *testing.T) {
			now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
			handler.SetClock(func() time.Time { return now })

			send := func(ip string) *httptest.ResponseRecorder {
				body := `{"query":"water","result_id":"h1","result_type":"hashtag"}`
				req := httptest.NewRequest("POST", "/api/search/click", strings.NewReader(body))
				req.RemoteAddr = ip + ":1234"
				w := httptest.NewRecorder()
				handler.TrackClick(w, req)
				return w
			}

			// Two clicks a minute for two hours stay under the limit
			for i := 0; i < 240; i++ {
				require.Equal(t, http.StatusAccepted, send("10.0.0.3").Code, "request %d at %s", i+1, time.Duration(i)*30*time.Second)
				now = now.Add(30 * time.Second)
			}

			// A burst exhausts the window and is told when it reopens
			for i := 0; i < 120; i++ {
				require.Equal(t, http.StatusAccepted, send("10.0.0.4").Code)
			}
			now = now.Add(20 * time.Second)
			w := send("10.0.0.4")
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Equal(t, "40", w.Header().Get("Retry-After"))

			now = now.Add(40 * time.Second)
			assert.Equal(t, http.StatusAccepted, send("10.0.0.4").Code)
		})
	}
}
