// Package diagnosis maps classifier output onto the arrhythmia category table.
package diagnosis

// Category indices as emitted by the classifier.
const (
	ClassNormal = iota
	ClassSupraventricular
	ClassVentricular
	ClassFusion
	ClassUnknown
)

// CategoryCount is the width of the classifier output.
const CategoryCount = 5

var categories = [CategoryCount]string{
	ClassNormal:           "Normal",
	ClassSupraventricular: "Supraventricular Ectopic",
	ClassVentricular:      "Ventricular Ectopic",
	ClassFusion:           "Fusion",
	ClassUnknown:          "Unknown",
}

// Lookup returns the category name for a class index. Indices outside the
// table fall back to "Unknown".
func Lookup(index int) string {
	if index < 0 || index >= len(categories) {
		return categories[ClassUnknown]
	}
	return categories[index]
}

// Categories returns the category names ordered by class index.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories[:])
	return out
}
