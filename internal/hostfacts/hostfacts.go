package hostfacts

import (
	"runtime"

	"github.com/nao1215/scriptorium/internal/model"
)

// CurrentDirMarker is the platform constant for "the current directory".
// Every platform this program supports uses ".", including Windows.
const CurrentDirMarker = "."

// Collect gathers host facts for the running process.
//
// Design decision: Collect returns a value rather than an error because
// every fact has a defined fallback. Callers print whatever comes back;
// a host where the CPU count is unknown still produces a valid facts
// object with cpu_count null.
func Collect() model.HostFacts {
	return model.HostFacts{
		Curdir:   CurrentDirMarker,
		Name:     OSFamily(runtime.GOOS),
		CPUCount: cpuCount(),
	}
}

// OSFamily maps a GOOS value to the short OS family identifier used in
// the facts output: "nt" for Windows, "posix" for Unix-like systems.
// Platforms that belong to neither family (plan9 and the sandboxed
// wasm targets) pass through verbatim so the value stays truthful.
func OSFamily(goos string) string {
	switch goos {
	case "windows":
		return "nt"
	case "plan9", "js", "wasip1":
		return goos
	default:
		return "posix"
	}
}

// cpuCount returns the logical CPU count, or nil when the runtime
// reports a non-positive value.
func cpuCount() *int {
	n := runtime.NumCPU()
	if n < 1 {
		return nil
	}
	return &n
}
