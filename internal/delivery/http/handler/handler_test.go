package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contrato-firma/internal/config"
	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/domain/repository"
	"contrato-firma/internal/infrastructure/httpclient"
	"contrato-firma/internal/upload"
	"contrato-firma/internal/usecase"
)

type backendStub struct {
	body   string
	status int
}

func (b *backendStub) PostMultipart(ctx context.Context, reqCtx *httpclient.RequestContext, path string, fields map[string]string, files []httpclient.FileUpload, progress httpclient.ProgressFunc, result interface{}) error {
	if progress != nil {
		progress(100, 100)
	}
	if b.status >= 300 {
		return &httpclient.StatusError{StatusCode: b.status, Body: b.body}
	}
	return json.Unmarshal([]byte(b.body), result)
}

type outcomeStub struct {
	mu sync.Mutex
	m  map[string]entity.UploadOutcome
}

func (o *outcomeStub) Save(ctx context.Context, id string, outcome entity.UploadOutcome) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.m[id] = outcome
	return nil
}

func (o *outcomeStub) Find(ctx context.Context, id string) (*entity.UploadOutcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v, ok := o.m[id]; ok {
		return &v, nil
	}
	return nil, repository.ErrOutcomeNotFound
}

func (o *outcomeStub) Delete(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.m, id)
	return nil
}

type extractorStub struct{}

func (extractorStub) Extract(ctx context.Context, image entity.FileCandidate) (*entity.ExtractionResult, error) {
	if !strings.HasPrefix(image.MediaType, "image/") {
		return nil, entity.NewValidationError("el archivo debe ser una imagen", nil)
	}
	return &entity.ExtractionResult{Data: &entity.IdentityData{Nombre: "Juan", Documento: "12345678"}}, nil
}

type pingStub struct{ err error }

func (p pingStub) Ping(ctx context.Context) error { return p.err }

// blockingBackend holds every upload until release is closed and records the session it was made for
type blockingBackend struct {
	mu       sync.Mutex
	sessions []string
	release  chan struct{}
}

func (b *blockingBackend) PostMultipart(ctx context.Context, reqCtx *httpclient.RequestContext, path string, fields map[string]string, files []httpclient.FileUpload, progress httpclient.ProgressFunc, result interface{}) error {
	b.mu.Lock()
	b.sessions = append(b.sessions, reqCtx.SessionID)
	b.mu.Unlock()

	<-b.release
	if progress != nil {
		progress(100, 100)
	}
	return json.Unmarshal([]byte(`{"message":"ok"}`), result)
}

func (b *blockingBackend) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sessions...)
}

func newTestApp(t *testing.T, backend *backendStub) *fiber.App {
	t.Helper()
	return newTestAppWithStore(t, backend, &outcomeStub{m: map[string]entity.UploadOutcome{}})
}

func newTestAppWithStore(t *testing.T, backend httpclient.HTTPClient, outcomes *outcomeStub) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		Upload: config.UploadConfig{
			AcceptedTypes: []string{"application/pdf"},
			Require:       config.RequireBoth,
		},
		Signature: config.SignatureConfig{Width: 80, Height: 40},
	}
	coordinator := upload.NewCoordinator(cfg, backend, zap.NewNop())
	uc := usecase.NewSigningUsecase(cfg, coordinator, nil, extractorStub{}, outcomes, zap.NewNop())

	sessions := NewSessionHandler(uc, zap.NewNop())
	identity := NewIdentityHandler(uc, zap.NewNop())

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Post("/sessions", sessions.CreateSession)
	api.Get("/sessions/:id", sessions.GetSession)
	api.Delete("/sessions/:id", sessions.DeleteSession)
	api.Put("/sessions/:id/file", sessions.SelectFile)
	api.Post("/sessions/:id/signature/events", sessions.ApplyPointerEvents)
	api.Put("/sessions/:id/signature", sessions.LoadSignature)
	api.Get("/sessions/:id/signature", sessions.GetSignature)
	api.Delete("/sessions/:id/signature", sessions.ClearSignature)
	api.Post("/sessions/:id/submit", sessions.Submit)
	api.Get("/sessions/:id/outcome", sessions.GetOutcome)
	api.Get("/sessions/:id/outcome/stream", sessions.StreamOutcome)
	api.Post("/identity/extract", identity.Extract)
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *entity.APIError
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(body, &env))
	}
	return resp, env
}

func multipartRequest(t *testing.T, method, url, field, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func jsonRequest(method, url string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, env := do(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var snap entity.SessionSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap.ID
}

var strokeEvents = []entity.PointerEvent{
	{Type: entity.PointerDown, X: 5, Y: 5},
	{Type: entity.PointerMove, X: 60, Y: 30},
	{Type: entity.PointerUp},
}

func TestSessionLifecycle(t *testing.T) {
	app := newTestApp(t, &backendStub{body: `{}`})
	id := createSession(t, app)

	resp, env := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, entity.CodeNotFound, env.Error.Code)
}

func TestSelectFile(t *testing.T) {
	app := newTestApp(t, &backendStub{body: `{}`})
	id := createSession(t, app)

	resp, env := do(t, app, multipartRequest(t, http.MethodPut, "/api/v1/sessions/"+id+"/file", "file", "report.pdf", "application/pdf", []byte("%PDF-1.4")))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var file entity.SelectedFile
	require.NoError(t, json.Unmarshal(env.Data, &file))
	assert.Equal(t, "report.pdf", file.Name)

	resp, env = do(t, app, multipartRequest(t, http.MethodPut, "/api/v1/sessions/"+id+"/file", "file", "photo.png", "image/png", []byte{1, 2}))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, entity.CodeValidation, env.Error.Code)
	assert.Equal(t, "must be a PDF", env.Message)

	_, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
	var snap entity.SessionSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.NotNil(t, snap.File)
	assert.Equal(t, "report.pdf", snap.File.Name)
}

func TestSignatureEndpoints(t *testing.T) {
	app := newTestApp(t, &backendStub{body: `{}`})
	id := createSession(t, app)

	resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/signature", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, env := do(t, app, jsonRequest(http.MethodPost, "/api/v1/sessions/"+id+"/signature/events", strokeEvents))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var artifact entity.SignatureArtifact
	require.NoError(t, json.Unmarshal(env.Data, &artifact))
	assert.True(t, strings.HasPrefix(artifact.DataURL, "data:image/png;base64,"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/signature", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	resp, _ = do(t, app, jsonRequest(http.MethodPut, "/api/v1/sessions/"+id+"/signature", LoadSignatureRequest{DataURL: artifact.DataURL}))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = do(t, app, jsonRequest(http.MethodPut, "/api/v1/sessions/"+id+"/signature", LoadSignatureRequest{DataURL: "not a data url"}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, entity.CodeBadRequest, env.Error.Code)

	resp, env = do(t, app, jsonRequest(http.MethodPost, "/api/v1/sessions/"+id+"/signature/events", []entity.PointerEvent{{Type: "tap"}}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, entity.CodeBadRequest, env.Error.Code)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id+"/signature", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/signature", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmit_ValidationError(t *testing.T) {
	app := newTestApp(t, &backendStub{body: `{}`})
	id := createSession(t, app)

	resp, env := do(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/submit", nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, upload.ErrNothingToSubmit.Error(), env.Message)
}

func TestSubmitAndStream(t *testing.T) {
	app := newTestApp(t, &backendStub{body: `{"message":"ok","contratoPDF":"doc1.pdf"}`})
	id := createSession(t, app)

	do(t, app, multipartRequest(t, http.MethodPut, "/api/v1/sessions/"+id+"/file", "file", "report.pdf", "application/pdf", []byte("%PDF-1.4")))
	do(t, app, jsonRequest(http.MethodPost, "/api/v1/sessions/"+id+"/signature/events", strokeEvents))

	resp, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/submit", nil))
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/outcome/stream", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: in_progress")
	assert.Contains(t, string(body), "event: success")
	assert.Contains(t, string(body), `"contratoPDF":"doc1.pdf"`)

	var outcome entity.UploadOutcome
	require.Eventually(t, func() bool {
		_, env := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/outcome", nil))
		_ = json.Unmarshal(env.Data, &outcome)
		return outcome.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, entity.UploadSuccess, outcome.State)
}

func TestSubmit_BackendError(t *testing.T) {
	app := newTestApp(t, &backendStub{status: 500, body: "boom"})
	id := createSession(t, app)

	do(t, app, multipartRequest(t, http.MethodPut, "/api/v1/sessions/"+id+"/file", "file", "report.pdf", "application/pdf", []byte("%PDF-1.4")))
	do(t, app, jsonRequest(http.MethodPost, "/api/v1/sessions/"+id+"/signature/events", strokeEvents))
	do(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/submit", nil))

	var outcome entity.UploadOutcome
	require.Eventually(t, func() bool {
		_, env := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/outcome", nil))
		_ = json.Unmarshal(env.Data, &outcome)
		return outcome.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, entity.UploadFailed, outcome.State)
	assert.Equal(t, 0, outcome.Progress)
	assert.NotEmpty(t, outcome.Error)
}

func TestSubmit_SessionIDSurvivesLaterRequests(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{})}
	outcomes := &outcomeStub{m: map[string]entity.UploadOutcome{}}
	app := newTestAppWithStore(t, backend, outcomes)
	id := createSession(t, app)

	do(t, app, multipartRequest(t, http.MethodPut, "/api/v1/sessions/"+id+"/file", "file", "report.pdf", "application/pdf", []byte("%PDF-1.4")))
	do(t, app, jsonRequest(http.MethodPost, "/api/v1/sessions/"+id+"/signature/events", strokeEvents))

	resp, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/submit", nil))
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	// same length as a real id, so a reused request buffer would be overwritten in place
	other := "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"
	for i := 0; i < 50; i++ {
		resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+other+"/outcome", nil))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	}
	close(backend.release)

	require.Eventually(t, func() bool {
		stored, err := outcomes.Find(context.Background(), id)
		return err == nil && stored.State == entity.UploadSuccess
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{id}, backend.seen())
	_, err := outcomes.Find(context.Background(), other)
	assert.ErrorIs(t, err, repository.ErrOutcomeNotFound)

	outcomes.mu.Lock()
	defer outcomes.mu.Unlock()
	assert.Len(t, outcomes.m, 1)
}

func TestExtractIdentity(t *testing.T) {
	app := newTestApp(t, &backendStub{})

	resp, env := do(t, app, multipartRequest(t, http.MethodPost, "/api/v1/identity/extract", "file", "dni.jpg", "image/jpeg", []byte{0xff, 0xd8}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var result entity.ExtractionResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.Data)
	assert.Equal(t, "12345678", result.Data.Documento)

	resp, _ = do(t, app, multipartRequest(t, http.MethodPost, "/api/v1/identity/extract", "file", "dni.pdf", "application/pdf", []byte{1}))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/identity/extract", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", newHealthHandler("svc", map[string]Pinger{"database": pingStub{}}).Health)
	app.Get("/degraded", newHealthHandler("svc", map[string]Pinger{
		"database": pingStub{},
		"redis":    pingStub{err: errors.New("connection refused")},
	}).Health)

	resp, env := do(t, app, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/degraded", nil))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "connection refused", health.Components["redis"])
	assert.Equal(t, "ok", health.Components["database"])
}
