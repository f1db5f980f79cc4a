// ABOUTME: TUI dependencies and start-up options
// ABOUTME: Collects what cmd wires in before the program starts

package tui

import (
	"remix-studio/config"
	"remix-studio/media"
)

// Dependencies holds all external dependencies for the TUI
type Dependencies struct {
	Backend      Backend
	Config       *config.SharedConfig
	ConfigPath   string // watched for changes when non-empty
	Probe        func(paths []string) []media.FileInfo
	RemixWidget  PlaybackWidget
	CreateWidget PlaybackWidget
	Debugf       func(string, ...interface{})
}
