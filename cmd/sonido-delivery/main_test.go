package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kong.Name("sonido-delivery"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}
	return parser
}

func TestParseAnalyze(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	cli := &CLI{}
	ctx, err := newParser(t, cli).Parse([]string{"analyze", audio, "--json", "--log-format", "json", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if ctx.Command() != "analyze <audio>" {
		t.Errorf("command = %q", ctx.Command())
	}
	if cli.Analyze.Audio != audio || !cli.Analyze.JSON {
		t.Errorf("analyze flags = %+v", cli.Analyze)
	}
	if cli.LogFormat != "json" || cli.LogLevel != "debug" {
		t.Errorf("globals = %+v", cli.Globals)
	}
}

func TestParseWatchDefaults(t *testing.T) {
	dir := t.TempDir()

	cli := &CLI{}
	if _, err := newParser(t, cli).Parse([]string{"watch", dir}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cli.Watch.Dir != dir {
		t.Errorf("dir = %q", cli.Watch.Dir)
	}
	if cli.Watch.Settle != 750*time.Millisecond || len(cli.Watch.Extensions) != 6 {
		t.Errorf("watch defaults = %+v", cli.Watch)
	}
	if cli.LogLevel != "warn" || cli.LogFormat != "text" {
		t.Errorf("global defaults = %+v", cli.Globals)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := [][]string{
		{"analyze", "/definitely/missing.wav"},
		{"analyze", "x.wav", "--log-format", "xml"},
		{"watch"},
	}
	for _, args := range tests {
		if _, err := newParser(t, &CLI{}).Parse(args); err == nil {
			t.Errorf("Parse(%v) should fail", args)
		}
	}
}
