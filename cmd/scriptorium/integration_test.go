package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/log"
	"github.com/nao1215/scriptorium/internal/model"
)

// skipIfShort skips the test if the -short flag is set.
// The integration tests boot the whole service on a real TCP port.
func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode (boots the full HTTP service)")
	}
}

// skipIfNoShell skips the test when no POSIX shell is available.
// The test scripts are shell scripts so the suite does not depend on a
// Python installation.
func skipIfNoShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping integration test: requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("skipping integration test: sh not found in PATH")
	}
}

// testService is a fully wired service running on a real port.
type testService struct {
	baseURL string
	cancel  context.CancelFunc
	done    chan error
}

// startTestService reserves a port, boots the service through the same
// wiring the serve command uses, and waits until the health endpoint
// answers.
func startTestService(t *testing.T, cfg *config.Config) *testService {
	t.Helper()

	// Reserve a free port and hand it to the service. The window
	// between closing the probe listener and the service binding it
	// again is negligible on localhost.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	addr := probe.Addr().String()
	if err := probe.Close(); err != nil {
		t.Fatalf("failed to release the probe listener: %v", err)
	}
	cfg.ListenAddr = addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, cfg, log.NewLogger(io.Discard, false))
	}()

	svc := &testService{
		baseURL: "http://" + addr,
		cancel:  cancel,
		done:    done,
	}

	deadline := time.Now().Add(10 * time.Second)
	for attempt := 1; ; attempt++ {
		resp, err := http.Get(svc.baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				t.Logf("service healthy after %d attempt(s)", attempt)
				return svc
			}
		}
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatalf("service did not answer health checks in time (last error: %v)", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// stop shuts the service down and verifies a clean exit.
func (s *testService) stop(t *testing.T) {
	t.Helper()

	s.cancel()
	select {
	case err := <-s.done:
		if err != nil {
			t.Errorf("expected a clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Error("service did not stop in time")
	}
}

// doJSON sends a request with an optional JSON body and decodes the
// JSON response into out when out is non-nil.
func (s *testService) doJSON(t *testing.T, method, path string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

// TestIntegrationServeWorkflow drives the whole API over real HTTP.
// This test:
//  1. Boots the service over an empty scripts directory
//  2. Creates a script and sees it listed and counted by health
//  3. Runs it with a JSON document and checks the captured output
//  4. Runs it again with the same input and gets the cached result
//  5. Updates the script and sees the new code execute
//  6. Fans out over all scripts, failures folded into the result map
//  7. Reads everything back from the run history
//  8. Deletes a script and shuts down cleanly
func TestIntegrationServeWorkflow(t *testing.T) {
	skipIfShort(t)
	skipIfNoShell(t)

	cfg := config.NewConfig()
	cfg.ScriptsDir = t.TempDir()
	cfg.ScriptExt = ".sh"
	cfg.Interpreter = "sh"
	cfg.InterpreterArgs = nil
	cfg.RunTimeout = 10 * time.Second
	// Every mutation in this test goes through the API. Parking the
	// background rescan keeps it from racing the listing assertions.
	cfg.ScanInterval = time.Hour
	cfg.DBDir = t.TempDir()

	svc := startTestService(t, cfg)
	defer svc.stop(t)

	// An empty directory serves an empty list.
	var names []string
	if resp := svc.doJSON(t, http.MethodGet, "/api/scripts", nil, &names); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from script list, got %d", resp.StatusCode)
	}
	if len(names) != 0 {
		t.Fatalf("expected no scripts, got %v", names)
	}

	t.Log("creating echo.sh...")
	created := map[string]string{}
	resp := svc.doJSON(t, http.MethodPost, "/api/scripts",
		map[string]string{"name": "echo.sh", "code": "cat\n"}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 from create, got %d", resp.StatusCode)
	}
	if created["name"] != "echo.sh" {
		t.Errorf("expected created name echo.sh, got %q", created["name"])
	}

	var health struct {
		Status  string          `json:"status"`
		Host    model.HostFacts `json:"host"`
		Scripts int             `json:"scripts"`
	}
	svc.doJSON(t, http.MethodGet, "/api/health", nil, &health)
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
	if health.Scripts != 1 {
		t.Errorf("expected 1 known script, got %d", health.Scripts)
	}
	if health.Host.Curdir != "." {
		t.Errorf("expected curdir '.', got %q", health.Host.Curdir)
	}

	// The script copies stdin to stdout, so the response must carry the
	// exact JSON document that went in.
	t.Log("running echo.sh...")
	var result model.ScriptResult
	resp = svc.doJSON(t, http.MethodPost, "/api/run/echo.sh",
		map[string]any{"data": map[string]int{"x": 1}}, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from run, got %d", resp.StatusCode)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %q)", result.ExitCode, result.Stderr)
	}
	if strings.TrimSpace(result.Stdout) != `{"x":1}` {
		t.Errorf("expected the input document on stdout, got %q", result.Stdout)
	}
	if result.Cached {
		t.Error("expected a fresh result on the first run")
	}

	var cachedResult model.ScriptResult
	svc.doJSON(t, http.MethodPost, "/api/run/echo.sh",
		map[string]any{"data": map[string]int{"x": 1}}, &cachedResult)
	if !cachedResult.Cached {
		t.Error("expected the second identical run to come from the cache")
	}
	if cachedResult.Stdout != result.Stdout {
		t.Errorf("expected the cached stdout to match, got %q", cachedResult.Stdout)
	}

	t.Log("updating echo.sh...")
	resp = svc.doJSON(t, http.MethodPut, "/api/scripts/echo.sh",
		map[string]string{"code": "tr a-z A-Z\n"}, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from update, got %d", resp.StatusCode)
	}

	// New input reaches the new code.
	var updatedResult model.ScriptResult
	svc.doJSON(t, http.MethodPost, "/api/run/echo.sh",
		map[string]any{"data": map[string]string{"word": "loud"}}, &updatedResult)
	if strings.TrimSpace(updatedResult.Stdout) != `{"WORD":"LOUD"}` {
		t.Errorf("expected the updated script to run, got %q", updatedResult.Stdout)
	}

	resp = svc.doJSON(t, http.MethodPost, "/api/scripts",
		map[string]string{"name": "fail.sh", "code": "echo nope >&2\nexit 3\n"}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 from create, got %d", resp.StatusCode)
	}

	t.Log("running all scripts...")
	var fanout struct {
		Results map[string]model.ScriptResult `json:"results"`
	}
	resp = svc.doJSON(t, http.MethodPost, "/api/run",
		map[string]any{"data": map[string]string{"word": "x"}}, &fanout)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from fan-out, got %d", resp.StatusCode)
	}
	if len(fanout.Results) != 2 {
		t.Fatalf("expected results for 2 scripts, got %d", len(fanout.Results))
	}
	if fanout.Results["echo.sh"].ExitCode != 0 {
		t.Errorf("expected exit 0 for echo.sh, got %d", fanout.Results["echo.sh"].ExitCode)
	}
	if fanout.Results["fail.sh"].ExitCode != 3 {
		t.Errorf("expected exit 3 for fail.sh, got %d", fanout.Results["fail.sh"].ExitCode)
	}
	if fanout.Results["fail.sh"].Stderr != "nope\n" {
		t.Errorf("expected captured stderr for fail.sh, got %q", fanout.Results["fail.sh"].Stderr)
	}

	t.Log("reading run history...")
	var records []*model.RunRecord
	resp = svc.doJSON(t, http.MethodGet, "/api/runs", nil, &records)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from history, got %d", resp.StatusCode)
	}
	// Three echo.sh runs plus the two fan-out runs.
	if len(records) != 5 {
		t.Fatalf("expected 5 history records, got %d", len(records))
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("expected history records to carry timestamps")
	}

	var failRecords []*model.RunRecord
	svc.doJSON(t, http.MethodGet, "/api/runs?script=fail.sh", nil, &failRecords)
	if len(failRecords) != 1 {
		t.Fatalf("expected 1 fail.sh record, got %d", len(failRecords))
	}
	if failRecords[0].Status() != model.RunStatusFailed {
		t.Errorf("expected a failed record, got %q", failRecords[0].Status())
	}

	var single model.RunRecord
	resp = svc.doJSON(t, http.MethodGet, fmt.Sprintf("/api/runs/%d", failRecords[0].ID), nil, &single)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for one record, got %d", resp.StatusCode)
	}
	if single.Script != "fail.sh" {
		t.Errorf("expected fail.sh, got %q", single.Script)
	}

	resp = svc.doJSON(t, http.MethodDelete, "/api/scripts/fail.sh", nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from delete, got %d", resp.StatusCode)
	}
	names = nil
	svc.doJSON(t, http.MethodGet, "/api/scripts", nil, &names)
	if len(names) != 1 || names[0] != "echo.sh" {
		t.Errorf("expected [echo.sh], got %v", names)
	}
}

// TestIntegrationHistorySurvivesRestart records a run, restarts the
// service over the same database directory, and reads the old run back
// through the new process.
func TestIntegrationHistorySurvivesRestart(t *testing.T) {
	skipIfShort(t)
	skipIfNoShell(t)

	scriptsDir := t.TempDir()
	dbDir := t.TempDir()
	writeScript(t, scriptsDir, "stamp.sh", "echo stamped\n")

	newCfg := func() *config.Config {
		cfg := config.NewConfig()
		cfg.ScriptsDir = scriptsDir
		cfg.ScriptExt = ".sh"
		cfg.Interpreter = "sh"
		cfg.InterpreterArgs = nil
		cfg.DBDir = dbDir
		return cfg
	}

	t.Log("first service: recording one run...")
	svc := startTestService(t, newCfg())
	var result model.ScriptResult
	svc.doJSON(t, http.MethodPost, "/api/run/stamp.sh", nil, &result)
	if result.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %q)", result.ExitCode, result.Stderr)
	}
	svc.stop(t)

	t.Log("second service: reading the run back...")
	svc = startTestService(t, newCfg())
	defer svc.stop(t)

	var records []*model.RunRecord
	svc.doJSON(t, http.MethodGet, "/api/runs?script=stamp.sh", nil, &records)
	if len(records) != 1 {
		t.Fatalf("expected the recorded run to survive the restart, got %d records", len(records))
	}
	if strings.TrimSpace(records[0].Stdout) != "stamped" {
		t.Errorf("expected the recorded stdout to survive, got %q", records[0].Stdout)
	}
}
