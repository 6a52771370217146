package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerFormats(t *testing.T) {
	var text, js bytes.Buffer
	newLogger(&text, slog.LevelInfo, "text").Info("hello", "k", "v")
	newLogger(&js, slog.LevelInfo, "json").Info("hello", "k", "v")

	if !strings.Contains(text.String(), "msg=hello") {
		t.Errorf("text output = %q", text.String())
	}
	if !strings.Contains(js.String(), `"msg":"hello"`) {
		t.Errorf("json output = %q", js.String())
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelWarn, "text")
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn record missing")
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "chat": false, "ask": false, "tools": false, "products": false, "designs": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing command %q", name)
		}
	}

	cmd, _, err := root.Find([]string{"products", "search"})
	if err != nil {
		t.Fatalf("find products search: %v", err)
	}
	if cmd.Flags().Lookup("top") == nil {
		t.Error("products search should have a --top flag")
	}
}
