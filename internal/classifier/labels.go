package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/straja-ai/arrhythmia/internal/diagnosis"
)

// loadLabels reads label_map.json as either a JSON array or an index->label object.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// checkLabels rejects a bundle whose label order disagrees with the category table.
func checkLabels(labels []string) error {
	want := diagnosis.Categories()
	if len(labels) != len(want) {
		return fmt.Errorf("label map has %d labels, category table has %d", len(labels), len(want))
	}
	for i, l := range labels {
		if !strings.EqualFold(strings.TrimSpace(l), want[i]) {
			return fmt.Errorf("label %d is %q, category table has %q", i, l, want[i])
		}
	}
	return nil
}
