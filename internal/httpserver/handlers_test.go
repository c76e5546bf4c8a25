package httpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/pipeline"
)

type fakeController struct {
	state    pipeline.State
	startErr error
	feedErr  error
	started  int
	stopped  int
	fed      [][]byte
}

func (f *fakeController) Start(ctx context.Context) error {
	f.started++
	if f.startErr == nil {
		f.state = pipeline.StateActive
	}
	return f.startErr
}

func (f *fakeController) Stop() {
	f.stopped++
	f.state = pipeline.StateIdle
}

func (f *fakeController) FeedPCM(pcm []byte) error {
	if f.feedErr != nil {
		return f.feedErr
	}
	f.fed = append(f.fed, pcm)
	return nil
}

func (f *fakeController) State() pipeline.State { return f.state }

type fakeObserver struct {
	served int
	count  int
}

func (f *fakeObserver) ServeWS(w http.ResponseWriter, r *http.Request) { f.served++ }
func (f *fakeObserver) ClientCount() int                              { return f.count }

func newTestServer(ctrl *fakeController, obs *fakeObserver) http.Handler {
	e := New()
	NewHandlers(ctrl, obs).Register(e)
	return e
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeController{}, &fakeObserver{count: 2})
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"pipeline":"idle"`) {
		t.Fatalf("expected idle pipeline state in %s", body)
	}
	if !strings.Contains(body, `"observers":2`) {
		t.Fatalf("expected observer count in %s", body)
	}
}

func TestPipelineStart(t *testing.T) {
	ctrl := &fakeController{}
	srv := newTestServer(ctrl, &fakeObserver{})
	r := httptest.NewRequest(http.MethodPost, "/pipeline/start", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ctrl.started != 1 {
		t.Fatalf("expected one start call, got %d", ctrl.started)
	}
}

func TestPipelineStart_Conflict(t *testing.T) {
	ctrl := &fakeController{startErr: errors.New("already active")}
	srv := newTestServer(ctrl, &fakeObserver{})
	r := httptest.NewRequest(http.MethodPost, "/pipeline/start", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestPipelineStop(t *testing.T) {
	ctrl := &fakeController{state: pipeline.StateActive}
	srv := newTestServer(ctrl, &fakeObserver{})
	r := httptest.NewRequest(http.MethodPost, "/pipeline/stop", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ctrl.stopped != 1 {
		t.Fatalf("expected one stop call, got %d", ctrl.stopped)
	}
}

func TestIngestAudio(t *testing.T) {
	ctrl := &fakeController{state: pipeline.StateActive}
	srv := newTestServer(ctrl, &fakeObserver{})
	chunk := bytes.Repeat([]byte{0x01, 0x02}, 1600)
	r := httptest.NewRequest(http.MethodPost, "/audio", bytes.NewReader(chunk))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if len(ctrl.fed) != 1 || len(ctrl.fed[0]) != len(chunk) {
		t.Fatalf("expected chunk forwarded intact")
	}
}

func TestIngestAudio_Empty(t *testing.T) {
	srv := newTestServer(&fakeController{}, &fakeObserver{})
	r := httptest.NewRequest(http.MethodPost, "/audio", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIngestAudio_PipelineNotActive(t *testing.T) {
	ctrl := &fakeController{feedErr: errors.New("pipeline not active")}
	srv := newTestServer(ctrl, &fakeObserver{})
	r := httptest.NewRequest(http.MethodPost, "/audio", bytes.NewReader([]byte{0x00, 0x01}))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestWebSocketRouteDelegatesToHub(t *testing.T) {
	obs := &fakeObserver{}
	srv := newTestServer(&fakeController{}, obs)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if obs.served != 1 {
		t.Fatalf("expected upgrade delegated to hub")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeController{}, &fakeObserver{})
	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition output")
	}
}
