package diagnosis

// FlagLowConfidence marks a diagnosis whose confidence is below the warn threshold.
const FlagLowConfidence = "low_confidence"

// Thresholds holds confidence cutoffs used to annotate a Record.
type Thresholds struct {
	// Warn flags diagnoses with confidence strictly below it. Zero disables the check.
	Warn float64 `yaml:"warn" json:"warn"`
}

// Flags returns the annotations for rec. The record itself is never altered.
func (t Thresholds) Flags(rec Record) []string {
	flags := []string{}
	if t.Warn > 0 && rec.Confidence < t.Warn {
		flags = append(flags, FlagLowConfidence)
	}
	return flags
}
