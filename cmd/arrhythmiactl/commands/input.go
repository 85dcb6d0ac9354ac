package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/straja-ai/arrhythmia/internal/diagnosis"
)

// labelledBeat is one row of an MIT-BIH style CSV: samples followed by the
// class index.
type labelledBeat struct {
	Samples []float64
	Label   int
}

// loadSignal reads one waveform from path, or stdin for "-". JSON files hold
// {"signal": [...]} or a bare array; anything else is read as CSV and every
// value on every row is concatenated.
func loadSignal(path string) ([]float64, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if strings.EqualFold(filepath.Ext(path), ".json") || bytes.HasPrefix(trimmed, []byte("{")) || bytes.HasPrefix(trimmed, []byte("[")) {
		return parseSignalJSON(trimmed)
	}
	return parseSignalCSV(bytes.NewReader(trimmed))
}

func parseSignalJSON(data []byte) ([]float64, error) {
	if bytes.HasPrefix(data, []byte("[")) {
		var samples []float64
		if err := json.Unmarshal(data, &samples); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return samples, nil
	}
	var body struct {
		Signal []float64 `json:"signal"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if body.Signal == nil {
		return nil, errors.New(`JSON input has no "signal" field`)
	}
	return body.Signal, nil
}

func parseSignalCSV(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var samples []float64
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		line++
		for col, field := range rec {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, col+1, err)
			}
			samples = append(samples, v)
		}
	}
	return samples, nil
}

// readLabelledBeats parses up to limit rows (0 means all). The last column
// of each row is the label, which must be a whole number in the category
// table.
func readLabelledBeats(r io.Reader, limit int) ([]labelledBeat, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var beats []labelledBeat
	line := 0
	for limit <= 0 || len(beats) < limit {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: need samples and a label, got %d columns", line, len(rec))
		}

		samples := make([]float64, len(rec)-1)
		for i, field := range rec[:len(rec)-1] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i+1, err)
			}
			samples[i] = v
		}

		lv, err := strconv.ParseFloat(strings.TrimSpace(rec[len(rec)-1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d label: %w", line, err)
		}
		if math.IsNaN(lv) || lv != math.Trunc(lv) || lv < 0 || lv >= diagnosis.CategoryCount {
			return nil, fmt.Errorf("line %d: label %v is not a category index", line, lv)
		}
		beats = append(beats, labelledBeat{Samples: samples, Label: int(lv)})
	}
	return beats, nil
}
