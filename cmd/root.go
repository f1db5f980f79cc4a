// ABOUTME: Root command: loads config and logging, then starts the terminal studio
// ABOUTME: Subcommands share the session built in the persistent pre-run hook

// Package cmd wires the remix-studio command line.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"remix-studio/media"
	"remix-studio/tui"
	"remix-studio/waveform"
)

// waveformBuckets is the envelope resolution kept per artifact
const waveformBuckets = 256

var (
	flagConfig     string
	flagEnvFile    string
	flagBackend    string
	flagDebug      bool
	flagCPUProfile string
	flagMemProfile string

	sess *session
)

var rootCmd = &cobra.Command{
	Use:   "remix-studio",
	Short: "Remix catalog tracks or mix your own uploads into a new track",
	Long: `remix-studio talks to a remix backend. In remix mode you search the catalog,
pick a track and a genre; in create mode you upload audio files, weight them and
optionally add lyrics sung in a chosen voice. Without a subcommand the terminal
studio starts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(sessionOptions{
			ConfigPath: flagConfig,
			EnvFile:    flagEnvFile,
			BackendURL: flagBackend,
			Debug:      flagDebug,
			CPUProfile: flagCPUProfile,
		})
		if err != nil {
			return err
		}

		sess = s

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if sess != nil {
			sess.Close(flagMemProfile)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudio(sess)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ./remix-studio.toml or ~/.config/remix-studio/config.toml)")
	pf.StringVar(&flagEnvFile, "env-file", ".env", "optional .env file with REMIX_STUDIO_* overrides")
	pf.StringVar(&flagBackend, "backend", "", "backend base URL (overrides config)")
	pf.BoolVar(&flagDebug, "debug", false, "log at debug level")
	pf.StringVar(&flagCPUProfile, "cpuprofile", "", "write cpu profile to file")
	pf.StringVar(&flagMemProfile, "memprofile", "", "write memory profile to file")
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

// runStudio starts the terminal UI
func runStudio(s *session) error {
	cfg := s.config.Get()

	var drop *tui.DropWatcher

	if cfg.DropDir != "" {
		d, err := tui.NewDropWatcher(cfg.DropDir, tui.DefaultDropQuiet, s.debugf)
		if err != nil {
			s.log.Sugar().Warnf("drop folder disabled: %v", err)
		} else {
			drop = d
			defer func() { _ = d.Close() }()
		}
	}

	start := time.Now()

	err := tui.Run(tui.Dependencies{
		Backend:      s.client,
		Config:       s.config,
		ConfigPath:   s.configPath,
		Probe:        media.ProbeAll,
		RemixWidget:  waveform.New(s.client, waveformBuckets),
		CreateWidget: waveform.New(s.client, waveformBuckets),
		Debugf:       s.debugf,
	}, drop)

	s.debugf("[MAIN] studio closed after %v", time.Since(start).Round(time.Second))

	return err
}
