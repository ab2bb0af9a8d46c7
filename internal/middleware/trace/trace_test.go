package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "reimburse/internal/log"
)

type observed struct {
	route, method, status string
}

func newRouter(t *testing.T, buf *bytes.Buffer) (*chi.Mux, *[]observed) {
	t.Helper()
	var seen []observed
	logger := applog.New(applog.Config{Format: "json", Output: buf})
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger, func(route, method, status string, _ time.Time) {
		seen = append(seen, observed{route, method, status})
	})

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/claims/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	})
	return r, &seen
}

func TestHandlerAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	r, seen := newRouter(t, &buf)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims/42", nil))

	id := rec.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	assert.Equal(t, observed{"/claims/{id}", "GET", "4xx"}, (*seen)[0])
	assert.Contains(t, buf.String(), `"route":"/claims/{id}"`)
	assert.Contains(t, buf.String(), `"status_code":404`)
}

func TestHandlerKeepsValidIncomingID(t *testing.T) {
	var buf bytes.Buffer
	r, _ := newRouter(t, &buf)
	incoming := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/claims/1", nil)
	req.Header.Set(HeaderRequestID, incoming)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/claims/1", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(HeaderRequestID))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "5xx", statusClass(503))
}
