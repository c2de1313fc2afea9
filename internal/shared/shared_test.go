package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestFormatFileSize(t *testing.T) {
	tc := []struct {
		name  string
		bytes float64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 Bytes"},
		{name: "bytes", bytes: 512, want: "512 Bytes"},
		{name: "kilobytes", bytes: 1536, want: "1.5 KB"},
		{name: "export estimate", bytes: 6500 * 1024, want: "6.35 MB"},
		{name: "gigabytes", bytes: 3 * 1024 * 1024 * 1024, want: "3 GB"},
		{name: "beyond largest unit", bytes: 2048 * 1024 * 1024 * 1024, want: "2048 GB"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFileSize(tt.bytes); got != tt.want {
				t.Errorf("FormatFileSize(%v) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	if got := ParseLogLevel("DEBUG"); got != log.DebugLevel {
		t.Errorf("expected debug level, got %v", got)
	}
	if got := ParseLogLevel("bogus"); got != log.InfoLevel {
		t.Errorf("expected info fallback, got %v", got)
	}
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger writes to buffer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "project", "p1")
		logger.Info("loaded")

		if !strings.Contains(buf.String(), "project=p1") {
			t.Errorf("expected key/value in output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger creates parent dirs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "tui.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		logger.Info("hello")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if got := string(data); !strings.Contains(got, "hello") {
			t.Errorf("expected log line in file, got %q", got)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected distinct ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
}

func TestMarshalJSON(t *testing.T) {
	plain, _ := MarshalJSON(map[string]int{"a": 1}, false)
	pretty, _ := MarshalJSON(map[string]int{"a": 1}, true)
	if string(plain) != `{"a":1}` {
		t.Errorf("unexpected plain JSON %s", plain)
	}
	if !strings.Contains(string(pretty), "\n  ") {
		t.Errorf("expected indentation, got %s", pretty)
	}
}
