// Ransom renders text as a ransom note for the ears: every distinct word
// is spoken by a different synthetic voice and the clips are stitched
// into one WAV by csound.
//
// Usage:
//
//	ransom render "every word a different voice" -o note.wav
//	ransom voices --format yaml
//	ransom score --dry-run "what would this sound like"
//	ransom serve --config /path/to/ransom.yaml
package main

//go:generate swag init --dir ../../ --generalInfo cmd/ransom/main.go --output ../../docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "ransom",
		Short: "Speak every word of a text in a different voice",
		Long: "ransom turns a text into an audio collage: each distinct word is synthesized by\n" +
			"a voice chosen from the installed speech engines, and csound renders the clips\n" +
			"on a single timeline. Words no engine can speak become short tones.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// rootBindings maps config keys to the persistent flags of rootCmd.
var rootBindings = map[string]string{
	"logging.level":    "log-level",
	"logging.format":   "log-format",
	"tts.backends":     "backends",
	"tts.timeout":      "timeout",
	"scan.workers":     "workers",
	"session.work_dir": "work-dir",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "path to config file (default: search ./ransom.yaml, ./configs, user config dir, /etc/ransom)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console, json, text")
	pf.StringSlice("backends", nil, "enabled speech backends in registry order ("+strings.Join(config.KnownBackends, ", ")+")")
	pf.Duration("timeout", 0, "timeout of a single backend call")
	pf.Int("workers", 1, "concurrent synthesis calls")
	pf.String("work-dir", "", "parent directory of the per-session clip directory")

	rootCmd.AddCommand(renderCmd, voicesCmd, scoreCmd, serveCmd, versionCmd)
}

// loadConfig loads the configuration with the root flags and extra
// command-local bindings applied, then sets up logging.
func loadConfig(cmd *cobra.Command, extra map[string]string) (*config.Config, error) {
	bindings := make(map[string]string, len(rootBindings)+len(extra))
	for k, v := range rootBindings {
		bindings[k] = v
	}
	for k, v := range extra {
		bindings[k] = v
	}

	cfg, err := config.Load(configFile, cmd.Flags(), bindings)
	if err != nil {
		return nil, err
	}
	config.SetupLogging(cfg.Logging)
	return cfg, nil
}

// readText returns the input text: the arguments joined by spaces, the
// named file, or stdin when the file is "-" or nothing else is given.
func readText(args []string, file string, stdin io.Reader) (string, error) {
	if len(args) > 0 && file != "" {
		return "", errors.New("give either text arguments or --input, not both")
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	var (
		data []byte
		err  error
	)
	if file == "" || file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ransom %s\n", version)
	},
}

//	@title			ransom API
//	@version		1.0
//	@description	Renders text as a collage of words spoken by different voices.
//	@BasePath		/
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var pe *session.PhaseError
		if errors.As(err, &pe) {
			slog.Error("session failed", "phase", pe.Phase, "backend", pe.Backend, "error", pe.Err)
		} else {
			slog.Error("ransom failed", "error", err)
		}
		cancel()
		os.Exit(1)
	}
}
