package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/internal/claims"
	"reimburse/internal/core"
	"reimburse/internal/kv"
	"reimburse/internal/kv/memory"
	applog "reimburse/internal/log"
	"reimburse/internal/metrics"
	"reimburse/internal/presenter"
	"reimburse/internal/receipts"
	"reimburse/internal/submission"
)

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, error) { return "", errors.New("disk on fire") }
func (failingKV) Set(context.Context, string, string) error { return errors.New("disk on fire") }
func (failingKV) Remove(context.Context, string) error { return errors.New("disk on fire") }

type testEnv struct {
	server      *Server
	sessions    *submission.Sessions
	registry    *prometheus.Registry
	receiptsDir string
}

func newTestEnv(t *testing.T, store kv.Store) *testEnv {
	t.Helper()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	cs := claims.New(store, claims.WithLogger(quiet), claims.WithObserver(m))
	sessions := submission.NewSessions(cs, 10, time.Minute, quiet, submission.WithRecorder(m))
	dir := t.TempDir()
	rs, err := receipts.NewLocal(dir)
	require.NoError(t, err)

	srv := NewServer(":0", Deps{
		Claims:    cs,
		Presenter: presenter.New(cs, quiet),
		Sessions:  sessions,
		Receipts:  rs,
		Metrics:   m,
		Gatherer:  reg,
		Logger:    applog.New(applog.Config{Output: io.Discard, Level: slog.LevelError}),
	})
	return &testEnv{server: srv, sessions: sessions, registry: reg, receiptsDir: dir}
}

// storedReceipts counts the files written under the receipts directory.
func (e *testEnv) storedReceipts(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(e.receiptsDir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	return decode[map[string]ErrorBody](t, rec)["error"]
}

func TestListClaimsSeedsDefaults(t *testing.T) {
	env := newTestEnv(t, memory.New())

	rec := env.do(t, http.MethodGet, "/claims", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	view := decode[presenter.ListView](t, rec)
	assert.Equal(t, 4, view.Total)
	assert.False(t, view.Empty)
	require.Len(t, view.Summary, 3)
	assert.Equal(t, core.StatusPending, view.Summary[0].Status)
	assert.Equal(t, 1, view.Summary[0].Count)
	assert.Equal(t, 2, view.Summary[1].Count)
	assert.Equal(t, 1, view.Summary[2].Count)
	assert.Equal(t, "#27ae60", view.Items[0].StatusColor)
}

func TestClaimCRUD(t *testing.T) {
	env := newTestEnv(t, memory.New())

	rec := env.do(t, http.MethodGet, "/claims/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.StatusPending, decode[core.Claim](t, rec).Status)

	rec = env.do(t, http.MethodPatch, "/claims/2", map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[core.Claim](t, rec)
	assert.Equal(t, core.StatusApproved, updated.Status)
	assert.Equal(t, "2", updated.ID)

	rec = env.do(t, http.MethodDelete, "/claims/2", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/claims/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeClaimNotFound, errorBody(t, rec).Code)
}

func TestUpdateClaimErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown id", "/claims/nope", map[string]string{"title": "x"}, http.StatusNotFound, CodeClaimNotFound},
		{"invalid status", "/claims/1", map[string]string{"status": "archived"}, http.StatusUnprocessableEntity, CodeValidation},
		{"empty patch", "/claims/1", map[string]string{}, http.StatusBadRequest, CodeBadRequest},
		{"unknown field", "/claims/1", map[string]string{"colour": "red"}, http.StatusBadRequest, CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, memory.New())
			rec := env.do(t, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorBody(t, rec).Code)
		})
	}
}

func TestReplaceClearAndReset(t *testing.T) {
	env := newTestEnv(t, memory.New())

	one := []core.Claim{{ID: "x1", Title: "Taxi", Type: core.CategoryTransport, Status: core.StatusPending}}
	rec := env.do(t, http.MethodPut, "/claims", one)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]core.Claim](t, rec), 1)

	rec = env.do(t, http.MethodPut, "/claims", []core.Claim{})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[presenter.ListView](t, env.do(t, http.MethodPost, "/claims/refresh", nil))
	assert.True(t, view.Empty)
	assert.NotNil(t, view.Items)

	rec = env.do(t, http.MethodDelete, "/claims", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	view = decode[presenter.ListView](t, env.do(t, http.MethodGet, "/claims", nil))
	assert.Equal(t, 4, view.Total, "cleared storage reseeds the defaults")

	rec = env.do(t, http.MethodPost, "/claims/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Claim](t, rec), 4)
}

func TestDraftSubmitFlow(t *testing.T) {
	env := newTestEnv(t, memory.New())

	rec := env.do(t, http.MethodPost, "/drafts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	d := decode[DraftView](t, rec)
	assert.Equal(t, "idle", d.State)
	assert.Empty(t, d.Attachments)
	base := "/drafts/" + d.ID

	rec = env.do(t, http.MethodPost, base+"/attachments", core.AttachmentInput{Name: "Hotel", Amount: "300000", Kind: core.KindDocument})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	att := decode[core.Attachment](t, rec)

	rec = env.do(t, http.MethodPost, base+"/attachments", core.AttachmentInput{Amount: "1"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, errorBody(t, rec).Missing, "name")

	rec = env.do(t, http.MethodPost, base+"/submit", submission.Form{Date: "01-02-2024 10:00:00", Type: core.CategoryAccommodation})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"detail"}, errorBody(t, rec).Missing)

	rec = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[DraftView](t, rec).Attachments, 1, "a rejected submit keeps the draft")

	rec = env.do(t, http.MethodPost, base+"/submit", submission.Form{
		Date:   "01-02-2024 10:00:00",
		Type:   core.CategoryAccommodation,
		Detail: "Conference hotel",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[core.Claim](t, rec)
	assert.Equal(t, core.StatusPending, c.Status)
	assert.Equal(t, core.CategoryAccommodation, c.Title)
	assert.Equal(t, "/claims/"+c.ID, rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base, nil).Code, "a successful submit closes the form")
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, base+"/attachments/"+att.ID, nil).Code)

	view := decode[presenter.ListView](t, env.do(t, http.MethodGet, "/claims", nil))
	assert.Equal(t, 5, view.Total)
}

func TestRemoveAttachmentAndCancel(t *testing.T) {
	env := newTestEnv(t, memory.New())
	d := decode[DraftView](t, env.do(t, http.MethodPost, "/drafts", nil))
	base := "/drafts/" + d.ID

	att := decode[core.Attachment](t, env.do(t, http.MethodPost, base+"/attachments",
		core.AttachmentInput{Name: "Fuel", Amount: "50000", Kind: core.KindDocument}))

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, base+"/attachments/"+att.ID, nil).Code)
	rec := env.do(t, http.MethodDelete, base+"/attachments/"+att.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeAttachmentAbsent, errorBody(t, rec).Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, base, nil).Code)
	assert.Equal(t, 0, env.sessions.Len())
	rec = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeFormNotFound, errorBody(t, rec).Code)
}

func TestSubmitPersistenceFailure(t *testing.T) {
	env := newTestEnv(t, failingKV{})
	d := decode[DraftView](t, env.do(t, http.MethodPost, "/drafts", nil))

	rec := env.do(t, http.MethodPost, "/drafts/"+d.ID+"/submit", submission.Form{
		Date: "01-02-2024 10:00:00", Type: core.CategoryMeals, Detail: "Lunch",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := errorBody(t, rec)
	assert.Equal(t, CodeSubmitFailed, body.Code)
	assert.NotContains(t, body.Message, "disk on fire")

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/drafts/"+d.ID, nil).Code, "the form stays open for a retry")

	view := decode[presenter.ListView](t, env.do(t, http.MethodGet, "/claims", nil))
	assert.Equal(t, 4, view.Total, "unreadable storage lists the defaults")
}

func TestServerErrorsAreLoggedWithRoute(t *testing.T) {
	env := newTestEnv(t, failingKV{})
	var logs bytes.Buffer
	env.server.logger = applog.New(applog.Config{Output: &logs, Format: "json", Level: slog.LevelDebug}).WithComponent(applog.ComponentHTTP)
	env.server.Handler = env.server.routes()

	d := decode[DraftView](t, env.do(t, http.MethodPost, "/drafts", nil))
	rec := env.do(t, http.MethodPost, "/drafts/"+d.ID+"/submit", submission.Form{
		Date: "01-02-2024 10:00:00", Type: core.CategoryMeals, Detail: "Lunch",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var failed map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "Request failed" {
			failed = entry
		}
	}
	require.NotNil(t, failed, logs.String())
	assert.Equal(t, "ERROR", failed["level"])
	assert.Equal(t, CodeSubmitFailed, failed[applog.FieldErrorType])
	assert.Equal(t, "POST /drafts/{sid}/submit", failed[applog.FieldOperation])
	assert.Equal(t, "/drafts/{sid}/submit", failed[applog.FieldRoute])
	assert.Contains(t, failed[applog.FieldError], "disk on fire")
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, memory.New())
	rec := env.do(t, http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{core.CategoryTransport, core.CategoryMeals, core.CategoryAccommodation, core.CategoryCommunication}, decode[[]string](t, rec))
}

func multipartBody(t *testing.T, fields map[string]string, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="receipt"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAddAttachmentMultipart(t *testing.T) {
	env := newTestEnv(t, memory.New())
	d := decode[DraftView](t, env.do(t, http.MethodPost, "/drafts", nil))

	body, ct := multipartBody(t, map[string]string{"name": "Taxi", "amount": "75000"}, "image/png", []byte("\x89PNG fake"))
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+d.ID+"/attachments", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	att := decode[core.Attachment](t, rec)
	assert.Equal(t, core.KindPhoto, att.Kind)
	assert.True(t, strings.HasPrefix(att.ImageLocation, "file://"), att.ImageLocation)
	assert.Equal(t, 1, env.storedReceipts(t))
}

func TestRejectedAttachmentStoresNoReceipt(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		missing []string
	}{
		{"no name", map[string]string{"amount": "75000"}, []string{"name"}},
		{"no amount", map[string]string{"name": "Taxi"}, []string{"amount"}},
		{"nothing", nil, []string{"name", "amount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, memory.New())
			d := decode[DraftView](t, env.do(t, http.MethodPost, "/drafts", nil))

			body, ct := multipartBody(t, tt.fields, "image/jpeg", []byte("jpeg bytes"))
			req := httptest.NewRequest(http.MethodPost, "/drafts/"+d.ID+"/attachments", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			env.server.Handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Equal(t, tt.missing, errorBody(t, rec).Missing)
			assert.Zero(t, env.storedReceipts(t), "a rejected entry must not leave a receipt behind")
			assert.Empty(t, decode[DraftView](t, env.do(t, http.MethodGet, "/drafts/"+d.ID, nil)).Attachments)
		})
	}
}

func TestUploadReceipt(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		status      int
		kind        core.AttachmentKind
	}{
		{"pdf", "application/pdf", http.StatusCreated, core.KindDocument},
		{"jpeg", "image/jpeg", http.StatusCreated, core.KindPhoto},
		{"text", "text/plain", http.StatusUnsupportedMediaType, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, memory.New())
			body, ct := multipartBody(t, nil, tt.contentType, []byte("data"))
			req := httptest.NewRequest(http.MethodPost, "/receipts", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			env.server.Handler.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusCreated {
				up := decode[ReceiptUpload](t, rec)
				assert.Equal(t, tt.kind, up.Kind)
				assert.NotEmpty(t, up.Location)
			}
		})
	}
}

func TestUploadReceiptRequiresMultipart(t *testing.T) {
	env := newTestEnv(t, memory.New())
	rec := env.do(t, http.MethodPost, "/receipts", map[string]string{"file": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApprovalChainAndHealth(t *testing.T) {
	env := newTestEnv(t, memory.New())

	rec := env.do(t, http.MethodGet, "/approval-chain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chain := decode[[]core.ApprovalStep](t, rec)
	require.Len(t, chain, 2)
	assert.Equal(t, "approved", chain[0].Status)
	assert.Equal(t, "waiting", chain[1].Status)

	rec = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.server.deps.Health = func(context.Context) error { return errors.New("down") }
	env.server.Handler = env.server.routes()
	rec = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, memory.New())
	env.do(t, http.MethodGet, "/claims", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reimburse_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/claims`)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, memory.New())
	rec := env.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorBody(t, rec).Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&core.ValidationError{Missing: []string{"date"}}, http.StatusUnprocessableEntity},
		{submission.ErrSubmitInProgress, http.StatusConflict},
		{submission.ErrSessionNotFound, http.StatusNotFound},
		{receipts.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{&core.PersistenceError{Op: "set", Err: errors.New("x")}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
