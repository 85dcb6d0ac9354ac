package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/straja-ai/arrhythmia/internal/activation"
)

const maxEventBytes = 1 << 20

func main() {
	addr := flag.String("addr", ":8099", "listen address for activation receiver")
	verbose := flag.Bool("v", false, "log the full event body")
	flag.Parse()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(*verbose),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("activation receiver listening on %s (POST JSON to /activation)...", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("receiver error: %v", err)
	}
}

func newMux(verbose bool) *http.ServeMux {
	h := &receiver{verbose: verbose}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /activation", h.handle)
	mux.HandleFunc("POST /{$}", h.handle)
	return mux
}

type receiver struct {
	verbose bool
}

func (rc *receiver) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusRequestEntityTooLarge)
		return
	}

	var ev activation.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Printf("received undecodable activation payload: len=%d err=%v", len(body), err)
		http.Error(w, `{"status":"error"}`, http.StatusBadRequest)
		return
	}

	log.Print(summarize(&ev))
	if rc.verbose {
		log.Printf("%s", body)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, `{"status":"ok"}`)
}

func summarize(ev *activation.Event) string {
	s := fmt.Sprintf("activation: request=%s decision=%s source=%s project=%s device=%s samples=%d total_ms=%.2f",
		ev.RequestID, ev.Decision, ev.Meta.Source, ev.Meta.ProjectID, ev.Meta.Device, ev.Input.Samples, ev.TimingMs.Total)
	if ev.Diagnosis != nil {
		s += fmt.Sprintf(" type=%q confidence=%.4f", ev.Diagnosis.ArrhythmiaType, ev.Diagnosis.Confidence)
	}
	if len(ev.Flags) > 0 {
		s += fmt.Sprintf(" flags=%v", ev.Flags)
	}
	if ev.Error != "" {
		s += fmt.Sprintf(" error=%q", ev.Error)
	}
	return s
}
