// Package server exposes the script service over HTTP.
//
// The API lives under /api and speaks JSON:
//   - script management (list, create, update, delete)
//   - running one script or fanning out over many
//   - run history backed by the run database
//   - a health probe and a Server-Sent Events stream
//
// Handlers are registered on a net/http ServeMux with method patterns,
// wrapped by a small middleware chain (panic recovery, CORS, request
// logging). Domain errors from the script store and the runner map onto
// HTTP status codes in one place, so handlers stay free of status
// bookkeeping.
package server
