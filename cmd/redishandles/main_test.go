package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoCodeAlone/redishandles/api"
	"github.com/GoCodeAlone/redishandles/config"
	"github.com/GoCodeAlone/redishandles/dispatch"
	"github.com/GoCodeAlone/redishandles/metadata"
	"github.com/alicebob/miniredis/v2"
)

const (
	setSignature = "*redis.StatusCmd Set(context.Context, string, interface {}, time.Duration)"
	getSignature = "*redis.StringCmd Get(context.Context, string)"
)

// captureOutput redirects command output for the duration of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "redishandles.yaml")
	if err := os.WriteFile(fp, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return fp
}

func redisConfig(t *testing.T, addr string) string {
	t.Helper()
	return writeConfig(t, "redis:\n  addr: "+addr+"\nlog:\n  level: error\n")
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"list", "names", "writes", "invoke", "serve"} {
		if _, ok := commands[name]; !ok {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestListFiltersByInterface(t *testing.T) {
	out := captureOutput(t)
	if err := runList([]string{"-interface", "StringCmdable", "-q", " set("}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	found := false
	for _, l := range lines {
		if l == setSignature {
			found = true
		}
		if !strings.Contains(strings.ToLower(l), " set(") {
			t.Errorf("unfiltered line %q", l)
		}
	}
	if !found {
		t.Errorf("expected %q in output:\n%s", setSignature, out.String())
	}
}

func TestListJSON(t *testing.T) {
	out := captureOutput(t)
	cfg := writeConfig(t, "interfaces: [HyperLogLogCmdable]\nlog:\n  level: error\n")
	if err := runList([]string{"-config", cfg, "-json"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var rows []signatureRow
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("expected HyperLogLog signatures")
	}
	for _, r := range rows {
		if r.Interface != "redis.HyperLogLogCmdable" {
			t.Errorf("%s listed on %s", r.Signature, r.Interface)
		}
	}
}

func TestListJQ(t *testing.T) {
	out := captureOutput(t)
	cfg := writeConfig(t, "interfaces: [StringCmdable]\nlog:\n  level: error\n")
	if err := runList([]string{"-config", cfg, "-jq", `.[] | select(.method == "Set") | .signature`}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != setSignature {
		t.Errorf("expected %q, got %q", setSignature, got)
	}

	if err := runList([]string{"-config", cfg, "-jq", ".[] |"}); err == nil {
		t.Error("expected an invalid jq expression to fail")
	}
}

func TestListRejectsUnknownInterfaceInConfig(t *testing.T) {
	captureOutput(t)
	cfg := writeConfig(t, "interfaces: [ClusterCmdable]\n")
	err := runList([]string{"-config", cfg})
	if !errors.Is(err, config.ErrInvalid) && !errors.Is(err, metadata.ErrUnknownInterface) {
		t.Fatalf("expected an invalid config error, got %v", err)
	}
}

func TestNamesUnique(t *testing.T) {
	out := captureOutput(t)
	cfg := writeConfig(t, "interfaces: [StringCmdable]\nlog:\n  level: error\n")
	if err := runNames([]string{"-config", cfg, "-unique"}); err != nil {
		t.Fatalf("names failed: %v", err)
	}
	names := strings.Fields(out.String())
	seen := make(map[string]bool)
	for i, n := range names {
		if n != strings.ToUpper(n) {
			t.Errorf("name %q is not upper-cased", n)
		}
		if seen[n] {
			t.Errorf("duplicate name %q", n)
		}
		seen[n] = true
		if i > 0 && names[i-1] > n {
			t.Errorf("names out of order: %q before %q", names[i-1], n)
		}
	}
	if !seen["SET"] || !seen["GET"] {
		t.Errorf("expected SET and GET, got %v", names)
	}
}

func TestInvokeAgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(t, mr.Addr())

	out := captureOutput(t)
	if err := runInvoke([]string{"-config", cfg, setSignature, "greeting", "hello", "0s"}); err != nil {
		t.Fatalf("invoke Set failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "OK" {
		t.Errorf("expected OK, got %q", got)
	}
	if v, _ := mr.Get("greeting"); v != "hello" {
		t.Errorf("expected hello in redis, got %q", v)
	}

	out.Reset()
	if err := runInvoke([]string{"-config", cfg, getSignature, "greeting"}); err != nil {
		t.Fatalf("invoke Get failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}

	out.Reset()
	if err := runInvoke([]string{"-config", cfg, getSignature, "missing"}); err != nil {
		t.Fatalf("invoke Get on a missing key failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "(nil)" {
		t.Errorf("expected (nil), got %q", got)
	}
}

func TestInvokeUnknownSignature(t *testing.T) {
	mr := miniredis.RunT(t)
	captureOutput(t)
	err := runInvoke([]string{"-config", redisConfig(t, mr.Addr()), "*redis.StatusCmd Nope(context.Context)"})
	if !errors.Is(err, dispatch.ErrUnknownSignature) {
		t.Fatalf("expected ErrUnknownSignature, got %v", err)
	}
}

func TestInvokeRequiresSignature(t *testing.T) {
	captureOutput(t)
	if err := runInvoke(nil); err == nil {
		t.Fatal("expected an error without a signature")
	}
}

func TestWritesReportsServerError(t *testing.T) {
	// miniredis does not implement ACL CAT.
	mr := miniredis.RunT(t)
	captureOutput(t)
	if err := runWrites([]string{"-config", redisConfig(t, mr.Addr())}); err == nil {
		t.Fatal("expected the ACL CAT failure to be returned")
	}
}

func TestFormatResult(t *testing.T) {
	if got := formatResult(nil); got != "(void)" {
		t.Errorf("expected (void), got %q", got)
	}
	if got := formatResult(42); got != "42" {
		t.Errorf("expected 42, got %q", got)
	}
}

func TestServerServesRegistry(t *testing.T) {
	cfg := writeConfig(t, "interfaces: [StringCmdable]\nlog:\n  level: error\n")
	e, err := newEnv(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newEnv failed: %v", err)
	}
	defer e.close(t.Context())

	reg, err := e.buildRegistry(t.Context())
	if err != nil {
		t.Fatalf("buildRegistry failed: %v", err)
	}

	router := api.NewRouter(reg, api.Config{Metrics: e.metrics, Logger: e.logger})
	defer router.Stop()
	srv := newServer("127.0.0.1:0", router)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestApplyReloadChangesLogLevel(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: warn\n")
	e, err := newEnv(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newEnv failed: %v", err)
	}
	defer e.close(t.Context())

	next := config.Default()
	next.Log.Level = "debug"
	e.applyReload(next)
	if got := e.level.Level().String(); got != "DEBUG" {
		t.Errorf("expected DEBUG after reload, got %s", got)
	}
}

func TestApplyReloadWarnsOnInvalidLevel(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: warn\n")
	e, err := newEnv(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newEnv failed: %v", err)
	}
	defer e.close(t.Context())

	var buf bytes.Buffer
	e.logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: e.level}))

	next := config.Default()
	next.Log.Level = "loud"
	e.applyReload(next)

	if got := e.level.Level(); got != slog.LevelWarn {
		t.Errorf("expected the level to stay WARN, got %s", got)
	}
	if out := buf.String(); !strings.Contains(out, "config reload ignored") || !strings.Contains(out, "loud") {
		t.Errorf("expected a warning naming the bad level, got %q", out)
	}
}
