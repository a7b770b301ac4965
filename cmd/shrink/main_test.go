package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shrink/internal/api"
	"shrink/internal/compress"
	"shrink/internal/config"
	"shrink/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", base)
	t.Setenv("SHRINK_API_TOKEN", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestConfigShowRedactsToken(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.API.Token = "super-secret"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("token leaked: %q", out)
	}
	if !strings.Contains(out, "********") || !strings.Contains(out, "[paths]") {
		t.Fatalf("expected TOML output, got %q", out)
	}
}

func TestCompressPhotoRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	mediaDir := filepath.Join(env.baseDir, "media")
	input := filepath.Join(mediaDir, "beach.jpg")
	testsupport.WritePhoto(t, input, 640, 480)
	testsupport.WriteFile(t, filepath.Join(mediaDir, "notes.txt"), 12)

	out, stderr, err := runCLI(t, []string{"compress", "--quality", "60", mediaDir}, env.configPath)
	if err != nil {
		t.Fatalf("compress: %v (stderr %q)", err, stderr)
	}
	if !strings.Contains(out, "1 compressed, 0 failed") {
		t.Fatalf("unexpected compress output: %q", out)
	}
	if !strings.Contains(stderr, "Skipping 1 unsupported file(s)") {
		t.Fatalf("expected skip notice, got %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(mediaDir, "compressed-beach.jpg")); err != nil {
		t.Fatalf("expected compressed output: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var entries []api.HistoryEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v (%q)", err, out)
	}
	if len(entries) != 1 || entries[0].Status != "completed" || entries[0].Kind != "image" {
		t.Fatalf("unexpected history entries: %#v", entries)
	}

	out, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list after clear: %v", err)
	}
	if !strings.Contains(out, "No jobs recorded") {
		t.Fatalf("expected empty history, got %q", out)
	}
}

func TestCompressJSONStreamsEvents(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "shot.png")
	testsupport.WritePhoto(t, input, 320, 240)

	out, _, err := runCLI(t, []string{"compress", "--json", "--no-history", "--format", "jpeg", input}, env.configPath)
	if err != nil {
		t.Fatalf("compress --json: %v", err)
	}

	var events []compress.Event
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var ev compress.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) < 2 {
		t.Fatalf("expected progress and result events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Type != compress.EventResult || last.Result == nil {
		t.Fatalf("last event should be the result: %#v", last)
	}
	data, err := os.ReadFile(last.Result.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Fatalf("expected jpeg bytes in %s", last.Result.OutputPath)
	}
	if _, err := os.Stat(env.cfg.HistoryPath()); !os.IsNotExist(err) {
		t.Fatalf("--no-history should not create the database, stat err %v", err)
	}
}

func TestCompressWithoutSupportedFilesFails(t *testing.T) {
	env := setupCLITestEnv(t)
	text := filepath.Join(env.baseDir, "readme.txt")
	testsupport.WriteFile(t, text, 4)

	if _, _, err := runCLI(t, []string{"compress", text}, env.configPath); err == nil {
		t.Fatal("expected error when nothing can be compressed")
	}
	if _, _, err := runCLI(t, []string{"compress", filepath.Join(env.baseDir, "missing.jpg")}, env.configPath); err == nil {
		t.Fatal("expected error for a missing path")
	}
}

func TestInfoListsFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePhoto(t, filepath.Join(env.baseDir, "a.jpg"), 64, 64)
	testsupport.WriteFile(t, filepath.Join(env.baseDir, "clip.mp4"), 2048)

	out, _, err := runCLI(t, []string{"info", env.baseDir}, env.configPath)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"a.jpg", "Image", "clip.mp4", "Video", "2 supported file(s)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("info output missing %q:\n%s", want, out)
		}
	}
}

func TestDepsCheckJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"deps", "check", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("deps check: %v", err)
	}
	var payload struct {
		Directory string `json:"directory"`
		Binaries  []struct {
			Name string `json:"name"`
		} `json:"binaries"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode deps check: %v (%q)", err, out)
	}
	if payload.Directory != env.cfg.Paths.DepsDir {
		t.Fatalf("directory = %q, want %q", payload.Directory, env.cfg.Paths.DepsDir)
	}
	if len(payload.Binaries) == 0 {
		t.Fatal("expected binary statuses")
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "Notifications disabled") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLogsShowsLatestSession(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "No logs found") {
		t.Fatalf("expected empty notice, got %q", out)
	}

	logPath := filepath.Join(env.cfg.Paths.LogDir, "shrinkd-20260101T000000Z.log")
	if err := os.WriteFile(logPath, []byte("alpha\nbeta\ngamma\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out, _, err = runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs -n 2: %v", err)
	}
	if out != "beta\ngamma\n" {
		t.Fatalf("unexpected logs output: %q", out)
	}
}
