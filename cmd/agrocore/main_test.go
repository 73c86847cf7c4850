package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGROCORE_STORAGE_DRIVER", "file")
	t.Setenv("AGROCORE_FILE_PATH", filepath.Join(dir, "state.json"))
	t.Setenv("AGROCORE_SNAPSHOT_DEBOUNCE_MS", "1")
	t.Setenv("AGROCORE_BLOB_DRIVER", "memory")
}

func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunWithoutCommandPrintsUsage(t *testing.T) {
	setupEnv(t)
	code, _, stderr := invoke(t)
	if code != 2 {
		t.Fatalf("expected usage exit code 2, got %d", code)
	}
	if !strings.Contains(stderr, "Usage: agrocore") {
		t.Fatalf("usage text missing: %q", stderr)
	}
}

func TestUnknownCommandFails(t *testing.T) {
	setupEnv(t)
	code, _, stderr := invoke(t, "frobnicate")
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr, "frobnicate") {
		t.Fatalf("unknown command not reported: %q", stderr)
	}
}

func TestHarvestLifecycleAcrossInvocations(t *testing.T) {
	setupEnv(t)

	if code, _, stderr := invoke(t, "harvests", "create", "Safra 2025/2026"); code != 0 {
		t.Fatalf("create failed (%d): %s", code, stderr)
	}
	code, stdout, stderr := invoke(t, "harvests", "list")
	if code != 0 {
		t.Fatalf("list failed (%d): %s", code, stderr)
	}
	if !strings.Contains(stdout, "Safra 2025/2026") || !strings.Contains(stdout, "*") {
		t.Fatalf("list must show the current harvest: %q", stdout)
	}

	code, stdout, stderr = invoke(t, "summary")
	if code != 0 {
		t.Fatalf("summary failed (%d): %s", code, stderr)
	}
	var out struct {
		Harvest string `json:"harvest"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("summary output is not JSON: %v\n%s", err, stdout)
	}
	if out.Harvest != "Safra 2025/2026" {
		t.Fatalf("summary harvest = %q", out.Harvest)
	}
}

func TestHarvestDeleteRequiresConfirmation(t *testing.T) {
	setupEnv(t)
	if code, _, stderr := invoke(t, "harvests", "create", "Safra 2025/2026"); code != 0 {
		t.Fatalf("create failed: %s", stderr)
	}
	if code, _, stderr := invoke(t, "harvests", "delete", "some-id"); code != 1 || !strings.Contains(stderr, "-yes") {
		t.Fatalf("unconfirmed delete must point at -yes (code %d): %q", code, stderr)
	}
}

func TestImportRequiresConfirmation(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "backup.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write backup: %v", err)
	}
	code, _, stderr := invoke(t, "import", path)
	if code != 1 {
		t.Fatalf("unconfirmed import must fail, got %d", code)
	}
	if !strings.Contains(stderr, "-yes") {
		t.Fatalf("error must point at the -yes flag: %q", stderr)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	setupEnv(t)

	if code, _, stderr := invoke(t, "harvests", "create", "Safra 2024/2025"); code != 0 {
		t.Fatalf("create failed: %s", stderr)
	}
	out := filepath.Join(t.TempDir(), "backup.json")
	if code, _, stderr := invoke(t, "export", "-out", out); code != 0 {
		t.Fatalf("export failed: %s", stderr)
	}

	// Import into a fresh store.
	t.Setenv("AGROCORE_FILE_PATH", filepath.Join(t.TempDir(), "state.json"))
	code, stdout, stderr := invoke(t, "import", "-yes", out)
	if code != 0 {
		t.Fatalf("import failed (%d): %s", code, stderr)
	}
	if !strings.Contains(stdout, `imported harvest "Safra 2024/2025"`) {
		t.Fatalf("import summary missing: %q", stdout)
	}
}

func TestReportEmitsJSON(t *testing.T) {
	setupEnv(t)
	if code, _, stderr := invoke(t, "harvests", "create", "Safra 2025/2026"); code != 0 {
		t.Fatalf("create failed: %s", stderr)
	}
	code, stdout, stderr := invoke(t, "report", "-from", "2026-01-01", "-to", "2026-12-31")
	if code != 0 {
		t.Fatalf("report failed (%d): %s", code, stderr)
	}
	var rep map[string]any
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("report output is not JSON: %v\n%s", err, stdout)
	}
	if _, ok := rep["totals"]; !ok {
		t.Fatalf("report missing totals: %q", stdout)
	}

	if code, _, _ := invoke(t, "report", "-from", "not-a-date"); code != 1 {
		t.Fatalf("malformed date must fail, got %d", code)
	}
}
