package model

import "time"

// Script describes a runnable script discovered in the scripts directory.
// The directory is the source of truth; this struct carries only the
// metadata the API and the cache need.
type Script struct {
	// Name is the file name of the script, including its extension.
	Name string `json:"name"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModTime is the file modification time. Run results cached before
	// this time are considered stale.
	ModTime time.Time `json:"mod_time"`
}
