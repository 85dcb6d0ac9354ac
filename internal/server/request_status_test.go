package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/straja-ai/arrhythmia/internal/activation"
	"github.com/straja-ai/arrhythmia/internal/config"
	"github.com/straja-ai/arrhythmia/internal/signal"
)

func TestRequestStatus(t *testing.T) {
	cfg := config.Default()
	cfg.Projects = []config.ProjectConfig{
		{ID: "ward-7", APIKeys: []string{"k7"}},
		{ID: "ward-8", APIKeys: []string{"k8"}},
	}
	s := newTestServer(t, cfg, &countingClassifier{probs: []float32{0, 0, 0, 1, 0}})

	rr := do(t, s, http.MethodPost, "/v1/diagnose", beatJSON(187), "k7")
	if rr.Code != http.StatusOK {
		t.Fatalf("diagnose: %d %s", rr.Code, rr.Body.String())
	}
	id := rr.Header().Get("X-Request-Id")

	status := do(t, s, http.MethodGet, "/v1/requests/"+id, "", "k7")
	if status.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", status.Code)
	}
	var body struct {
		Status     string            `json:"status"`
		Activation *activation.Event `json:"activation"`
	}
	if err := json.Unmarshal(status.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Status != statusCompleted || body.Activation == nil || body.Activation.Diagnosis.ArrhythmiaType != "Fusion" {
		t.Fatalf("unexpected status body: %s", status.Body.String())
	}
	if body.Activation.Meta.ProjectID != "ward-7" {
		t.Fatalf("unexpected project: %+v", body.Activation.Meta)
	}

	if rr := do(t, s, http.MethodGet, "/v1/requests/"+id, "", "k8"); rr.Code != http.StatusNotFound {
		t.Fatalf("other project must not see the request, got %d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, "/v1/requests/nope", "", "k7"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rr.Code)
	}
}

func TestRequestStoreLifecycle(t *testing.T) {
	now := time.Unix(1000, 0)
	store := newRequestStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Start("r1", "p")
	if e, ok := store.Get("r1"); !ok || e.status != statusPending {
		t.Fatalf("expected pending entry, got %+v %v", e, ok)
	}

	store.Complete("r1", &activation.Event{RequestID: "r1"}, &signal.DegenerateSignalError{})
	e, ok := store.Get("r1")
	if !ok || e.status != statusFailed || e.errCode != "degenerate_signal" || e.projectID != "p" {
		t.Fatalf("unexpected failed entry: %+v", e)
	}

	store.Complete("r2", &activation.Event{Meta: activation.Meta{ProjectID: "q"}}, nil)
	if e, _ := store.Get("r2"); e.projectID != "q" || e.status != statusCompleted {
		t.Fatalf("unexpected entry: %+v", e)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get("r1"); ok {
		t.Fatal("expected entry to expire")
	}

	store.Complete("", nil, errors.New("ignored"))
	if _, ok := store.Get(""); ok {
		t.Fatal("empty id must not be stored")
	}
}
