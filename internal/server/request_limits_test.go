package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/straja-ai/arrhythmia/internal/classifier"
	"github.com/straja-ai/arrhythmia/internal/config"
	"github.com/straja-ai/arrhythmia/internal/signal"
)

func TestDiagnose_BlocksLargeBody(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxRequestBodyBytes = 50
	cc := &countingClassifier{probs: []float32{1, 0, 0, 0, 0}}
	s := newTestServer(t, cfg, cc)

	rr := do(t, s, http.MethodPost, "/v1/diagnose", beatJSON(187), "")
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	if cc.called.Load() != 0 {
		t.Fatalf("classifier should not be called on blocked request")
	}
}

func TestDiagnose_BlocksTooManySamples(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxSamples = 200
	cc := &countingClassifier{probs: []float32{1, 0, 0, 0, 0}}
	s := newTestServer(t, cfg, cc)

	rr := do(t, s, http.MethodPost, "/v1/diagnose", beatJSON(201), "")
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "too_many_samples" {
		t.Fatalf("expected 400 too_many_samples, got %d %s", rr.Code, rr.Body.String())
	}
	if cc.called.Load() != 0 {
		t.Fatalf("classifier should not be called on blocked request")
	}

	if rr := do(t, s, http.MethodPost, "/v1/diagnose", beatJSON(200), ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 at the limit, got %d", rr.Code)
	}
}

func TestDiagnose_InFlightLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxInFlightRequests = 1

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := classifier.Func(func(ctx context.Context, _ signal.Tensor) ([]float32, error) {
		close(entered)
		<-release
		return []float32{1, 0, 0, 0, 0}, nil
	})
	s := newTestServer(t, cfg, blocking)

	done := make(chan int)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/diagnose", bytes.NewBufferString(beatJSON(187)))
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		done <- rr.Code
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first request never reached the classifier")
	}

	rr := do(t, s, http.MethodPost, "/v1/diagnose", beatJSON(187), "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", code)
	}
}

func TestDiagnose_Timeout(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RequestTimeout = 20 * time.Millisecond
	slow := classifier.Func(func(ctx context.Context, _ signal.Tensor) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s := newTestServer(t, cfg, slow)

	rr := do(t, s, http.MethodPost, "/v1/diagnose", beatJSON(187), "")
	if rr.Code != http.StatusGatewayTimeout || !strings.Contains(rr.Body.String(), "timeout") {
		t.Fatalf("expected 504 timeout, got %d %s", rr.Code, rr.Body.String())
	}
}
