package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/straja-ai/arrhythmia/internal/app"
	"github.com/straja-ai/arrhythmia/internal/classifier"
	"github.com/straja-ai/arrhythmia/internal/config"
	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/signal"
)

func main() {
	cfgPath := flag.String("config", "", "path to config yaml (required)")
	n := flag.Int("n", 200, "number of iterations")
	samples := flag.Int("samples", 187, "length of the synthetic beat")
	flag.Parse()

	if *cfgPath == "" {
		log.Fatalf("config flag is required")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// Single session avoids queueing noise.
	cfg.Model.MaxSessions = 1

	c, version, err := app.LoadClassifier(cfg.Model)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}
	pipeline, err := inference.New(c, inference.WithModelVersion(version))
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	defer pipeline.Close()

	beat := syntheticBeat(*samples)
	req := inference.Request{Source: inference.SourceCLI, Samples: beat}
	ctx := context.Background()

	// Warmup
	for i := 0; i < 5; i++ {
		if _, err := pipeline.Diagnose(ctx, req); err != nil {
			log.Fatalf("warmup diagnose failed: %v", err)
		}
	}

	if *n <= 0 {
		*n = 1
	}

	durations := make([]time.Duration, 0, *n)
	var conditioning, inferenceTime time.Duration
	for i := 0; i < *n; i++ {
		start := time.Now()
		resp, err := pipeline.Diagnose(ctx, req)
		if err != nil {
			log.Fatalf("diagnose failed: %v", err)
		}
		durations = append(durations, time.Since(start))
		conditioning += resp.Timings.Conditioning
		inferenceTime += resp.Timings.Inference
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	count := float64(len(durations))
	avg := float64(total.Microseconds()) / 1000.0 / count
	p50 := float64(durations[len(durations)/2].Microseconds()) / 1000.0
	p95 := float64(durations[int(count*0.95)].Microseconds()) / 1000.0

	modelFile := ""
	if m, ok := c.(*classifier.Model); ok {
		modelFile = m.ModelFile()
	}

	fmt.Printf("bench: n=%d avg_ms=%.3f p50_ms=%.3f p95_ms=%.3f cond_avg_ms=%.3f infer_avg_ms=%.3f samples=%d version=%s model=%s\n",
		len(durations),
		avg,
		p50,
		p95,
		float64(conditioning.Microseconds())/1000.0/count,
		float64(inferenceTime.Microseconds())/1000.0/count,
		len(beat),
		version,
		modelFile,
	)
}

// syntheticBeat is a 1.2 Hz base rhythm with a sharp QRS-like spike.
func syntheticBeat(n int) []float64 {
	if n < signal.MinSamples {
		n = signal.MinSamples
	}
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / signal.SamplingRate
		out[i] = 0.2*math.Sin(2*math.Pi*1.2*t) + math.Exp(-math.Pow((t-0.4)/0.02, 2))
	}
	return out
}
