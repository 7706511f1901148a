// Package cli implements the sonido-delivery command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"github.com/RyanBlaney/sonido-delivery/delivery"
	"github.com/RyanBlaney/sonido-delivery/delivery/config"
	"github.com/RyanBlaney/sonido-delivery/logging"
	"github.com/RyanBlaney/sonido-delivery/transcript"
)

// Globals are flags shared by every command.
type Globals struct {
	Version   kong.VersionFlag `short:"v" help:"Show version information"`
	Config    string           `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	LogLevel  string           `help:"Log level (${enum})" default:"warn" enum:"debug,info,warn,error"`
	LogFormat string           `help:"Log format (${enum})" default:"text" enum:"text,json"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout != nil {
		return g.Stdout
	}
	return os.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Stderr != nil {
		return g.Stderr
	}
	return os.Stderr
}

// Logger builds the logger selected by the log flags. Logs always go to
// stderr so that reports on stdout stay machine readable.
func (g *Globals) Logger() (logging.Logger, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}

	switch g.LogFormat {
	case "json":
		return logging.NewJSONLogger(g.stderr(), level), nil
	default:
		l := logging.NewDefaultLoggerWithWriters(g.stderr(), g.stderr())
		l.SetLevel(level)
		return l, nil
	}
}

// LoadConfig returns the configuration file contents, or the defaults
// when no file was given.
func (g *Globals) LoadConfig() (*config.Config, error) {
	if g.Config == "" {
		return config.Default(), nil
	}
	return config.LoadFile(g.Config)
}

// newEngine builds an engine from the global flags.
func (g *Globals) newEngine() (*delivery.Engine, logging.Logger, error) {
	logger, err := g.Logger()
	if err != nil {
		return nil, nil, err
	}
	logging.SetGlobalLogger(logger)

	cfg, err := g.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	engine, err := delivery.New(cfg, delivery.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return engine, logger, nil
}

// AnalyzeCmd analyses a single recording.
type AnalyzeCmd struct {
	Audio string `arg:"" type:"existingfile" help:"Audio file to analyse"`
	Words string `type:"existingfile" help:"Word timestamps JSON (default: <audio>.words.json when present)"`
	JSON  bool   `help:"Print the report as JSON"`
}

// Run implements the analyze command.
func (a *AnalyzeCmd) Run(ctx context.Context, g *Globals) error {
	engine, logger, err := g.newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	var source transcript.Source = transcript.SidecarSource{Logger: logger}
	if a.Words != "" {
		source = transcript.FileSource{Path: a.Words}
	}

	report, err := analyzeFile(ctx, engine, source, a.Audio)
	if err != nil {
		return err
	}

	if a.JSON {
		enc := json.NewEncoder(g.stdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err = fmt.Fprint(g.stdout(), RenderSummary(filepath.Base(a.Audio), report))
	return err
}

// WatchCmd analyses recordings as they appear in a directory.
type WatchCmd struct {
	Dir        string        `arg:"" type:"existingdir" help:"Directory to watch"`
	Extensions []string      `default:".wav,.mp3,.m4a,.flac,.ogg,.webm" help:"Audio file extensions to pick up"`
	Settle     time.Duration `default:"750ms" help:"Quiet period after the last write before a file is analysed"`
}

// Run implements the watch command.
func (w *WatchCmd) Run(ctx context.Context, g *Globals) error {
	engine, logger, err := g.newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	watcher := NewWatcher(engine, transcript.SidecarSource{Logger: logger}, logger, w.Extensions, w.Settle)
	fmt.Fprintf(g.stderr(), "%s %s\n", KeyStyle.Render("Watching"), ValueStyle.Render(w.Dir))
	return watcher.Run(ctx, w.Dir)
}

// analyzeFile runs the engine over one audio file and its words.
func analyzeFile(ctx context.Context, engine *delivery.Engine, source transcript.Source, path string) (*delivery.Report, error) {
	words, err := source.Words(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load words: %w", err)
	}

	report, err := engine.AnalyzeFile(ctx, path, words)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return report, nil
}
