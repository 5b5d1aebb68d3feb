package obslog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "yaml")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_TO_FILE", "false")
	cfg := ConfigFromEnv()
	if cfg.Level != zapcore.WarnLevel || cfg.Format != "legacy" || cfg.ToFile {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.FilePath != filepath.Join("logs", "cuescore.log") {
		t.Fatalf("default log file = %q", cfg.FilePath)
	}
}

func TestNewWritesJSONToFileAndConsole(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	logger, err := New(Config{Level: zapcore.InfoLevel, Console: true, ToFile: true, FilePath: path, Format: "json", Component: "test"}, &console)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("match_start", zap.String("id", "m1"))
	_ = logger.Sync()
	t.Cleanup(func() {
		for _, c := range closers {
			_ = c.Close()
		}
		closers = nil
	})

	if strings.Contains(console.String(), "hidden") {
		t.Fatalf("debug line should be filtered")
	}
	if !strings.Contains(console.String(), `"msg":"match_start"`) || !strings.Contains(console.String(), `"logger":"test"`) {
		t.Fatalf("console output = %s", console.String())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), `"id":"m1"`) {
		t.Fatalf("file output = %s", raw)
	}
}
