package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
	"github.com/nixlim/ids-top/internal/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestStatusCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/status":
			w.Write([]byte(`{"success":true,"data":{"running":true,"uptime_seconds":90,"version":"0.1.0"},"error":null,"timestamp":""}`))
		case "/api/stats":
			w.Write([]byte(`{"success":true,"data":{"packets_processed":1200,"threats_detected":7},"error":null,"timestamp":""}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, fmt.Sprintf(`
[backend]
base_url = %q

[storage]
backend = "memory"

[logging]
file = ""
`, srv.URL))

	out, _, err := execute(t, "status", "--config", cfgPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Session:  running", "Version:  0.1.0", "Uptime:   1m30s", "Packets:  1200", "Threats:  7"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommand_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"data":null,"error":"engine offline","timestamp":""}`))
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, fmt.Sprintf("[backend]\nbase_url = %q\n[logging]\nfile = \"\"\n", srv.URL))

	_, _, err := execute(t, "status", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "engine offline") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestFiltersListCommand(t *testing.T) {
	cfgPath := writeConfig(t, "[storage]\nbackend = \"memory\"\n[logging]\nfile = \"\"\n")

	out, _, err := execute(t, "filters", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("filters list: %v", err)
	}
	for _, want := range []string{"default-critical", "Critical Threats (built-in)", "default-false-positives"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnnotationsClearCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ids-top.db")
	cfgPath := writeConfig(t, fmt.Sprintf("[storage]\nbackend = \"sqlite\"\ndb_path = %q\n[logging]\nfile = \"\"\n", dbPath))

	ctx := context.Background()
	kv, err := storage.NewSQLiteKV(dbPath)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	store := annotations.NewStore(ctx, kv, annotations.ClassKey, nil)
	alert := alerts.Alert{ID: "a1", SourceIP: "10.0.0.5", ThreatType: "PortScan", Severity: alerts.SeverityHigh}
	if err := store.SetStatus(ctx, alert, annotations.StatusInvestigating, "checking"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	kv.Close()

	out, _, err := execute(t, "annotations", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("annotations list: %v", err)
	}
	if !strings.Contains(out, "10.0.0.5-PortScan") || !strings.Contains(out, "Investigating") {
		t.Errorf("list output:\n%s", out)
	}

	out, _, err = execute(t, "annotations", "clear", "--config", cfgPath)
	if err != nil {
		t.Fatalf("annotations clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 annotations") {
		t.Errorf("clear output: %q", out)
	}

	kv, err = storage.NewSQLiteKV(dbPath)
	if err != nil {
		t.Fatalf("reopening sqlite: %v", err)
	}
	defer kv.Close()
	if n := annotations.NewStore(ctx, kv, annotations.ClassKey, nil).Len(); n != 0 {
		t.Errorf("annotations after clear = %d, want 0", n)
	}
}

func TestAnnotationsClearCommand_MemoryStorage(t *testing.T) {
	cfgPath := writeConfig(t, "[storage]\nbackend = \"memory\"\n[logging]\nfile = \"\"\n")

	out, _, err := execute(t, "annotations", "clear", "--config", cfgPath)
	if err != nil {
		t.Fatalf("annotations clear: %v", err)
	}
	if !strings.Contains(out, "nothing to clear") {
		t.Errorf("output: %q", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfgPath := writeConfig(t, "[storage]\nbackend = \"cassandra\"\n")

	_, _, err := execute(t, "filters", "list", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "config error") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRootRejectsArgs(t *testing.T) {
	_, _, err := execute(t, "extra")
	if err == nil {
		t.Fatal("expected error for positional argument")
	}
}
