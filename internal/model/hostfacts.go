package model

// HostFacts describes the environment the current process runs on.
// It is printed by the report command and embedded in the service
// health response.
//
// The JSON field order is part of the observable output: curdir,
// name, cpu_count.
type HostFacts struct {
	// Curdir is the platform constant for the current directory.
	// It is "." on every platform this program supports.
	Curdir string `json:"curdir"`

	// Name is the OS family identifier ("posix", "nt", ...).
	Name string `json:"name"`

	// CPUCount is the number of logical CPUs available to the
	// process. It is nil when the count cannot be determined, which
	// serializes to JSON null rather than 0.
	CPUCount *int `json:"cpu_count"`
}
