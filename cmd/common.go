// ABOUTME: Shared initialization for all commands (TUI, headless flows, stub server)
// ABOUTME: Loads config and env overrides, opens the log and builds the backend client

package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"go.uber.org/zap"

	"remix-studio/backend"
	"remix-studio/config"
	"remix-studio/logger"
)

// sessionOptions contains the global command-line options
type sessionOptions struct {
	ConfigPath string
	EnvFile    string
	BackendURL string
	Debug      bool
	CPUProfile string
}

// session holds everything a command needs
type session struct {
	config     *config.SharedConfig
	configPath string
	log        *zap.Logger
	debugf     func(string, ...interface{})
	client     *backend.Client

	stopCPUProfile func()
}

// newSession loads configuration, applies overrides and prepares logging and the client
func newSession(opts sessionOptions) (*session, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		// A broken file falls back to defaults, like a missing one
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}

	cfg = config.ApplyEnv(cfg, opts.EnvFile)

	if opts.BackendURL != "" {
		cfg.BackendURL = strings.TrimRight(opts.BackendURL, "/")
	}

	if opts.Debug {
		cfg.LogLevel = "debug"
	}

	l, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize log: %w", err)
	}

	if opts.Debug && isTTY(os.Stdout) && cfg.LogPath != "" {
		fmt.Printf("Debug logging enabled: %s\n", cfg.LogPath)
	}

	s := &session{
		config:     config.NewSharedConfig(cfg),
		configPath: path,
		log:        l,
		debugf:     logger.Debugf(l),
		client:     backend.NewClient(cfg.BackendURL, cfg.Timeout()),
	}

	if opts.CPUProfile != "" {
		stop, err := setupCPUProfile(opts.CPUProfile)
		if err != nil {
			return nil, err
		}

		s.stopCPUProfile = stop
	}

	l.Info("session started",
		zap.String("backend", cfg.BackendURL),
		zap.String("config", path),
		zap.String("log_level", cfg.LogLevel))

	return s, nil
}

// Close flushes the log and finishes profiling
func (s *session) Close(memProfile string) {
	if s.stopCPUProfile != nil {
		s.stopCPUProfile()
	}

	if memProfile != "" {
		writeMemoryProfile(memProfile)
	}

	_ = s.log.Sync()
}

// isTTY checks if the given file is a terminal
func isTTY(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}

// setupCPUProfile starts CPU profiling, returns cleanup function
func setupCPUProfile(filename string) (func(), error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not start CPU profile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()

		if err := f.Close(); err != nil {
			log.Printf("Warning: failed to close CPU profile: %v", err)
		}
	}, nil
}

// writeMemoryProfile writes memory profile to file
func writeMemoryProfile(filename string) {
	f, err := os.Create(filename)
	if err != nil {
		log.Printf("could not create memory profile: %v", err)

		return
	}

	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Warning: failed to close memory profile: %v", err)
		}
	}()

	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Printf("could not write memory profile: %v", err)
	}
}

// truncate shortens string to maxLen runes, adding "..." if needed
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return string(r[:maxLen])
	}

	return string(r[:maxLen-3]) + "..."
}

// errUsage marks a bad invocation
var errUsage = errors.New("invalid arguments")
