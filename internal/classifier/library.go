package classifier

import (
	"os"
	"path/filepath"
	"strings"
)

// SharedLibraryEnv overrides onnxruntime shared library discovery.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// ResolveSharedLibraryPath locates the onnxruntime shared library. An explicit
// path wins, then SharedLibraryEnv, then common names under the bundle dir and
// system library dirs. It returns "" when nothing is found.
func ResolveSharedLibraryPath(explicit, bundleDir string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if env := strings.TrimSpace(os.Getenv(SharedLibraryEnv)); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/usr/local/lib",
		"/usr/lib",
		"/opt/homebrew/lib",
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
