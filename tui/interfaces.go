// ABOUTME: Interfaces defining dependencies for the TUI package
// ABOUTME: Allows clean separation and easy testing with fakes

package tui

import (
	"context"
	"time"

	"remix-studio/backend"
	"remix-studio/workflow"
)

// Backend is the remote service the studio talks to
type Backend interface {
	workflow.RemixAPI
	workflow.CreateAPI
	Search(ctx context.Context, query string, maxResults int) ([]backend.SearchResultItem, error)
	Genres(ctx context.Context) ([]string, error)
	Download(ctx context.Context, url, dir, filename string) (string, error)
}

// PlaybackWidget is a workflow widget that can also draw itself
type PlaybackWidget interface {
	workflow.Widget
	View(width int) string
	Position() time.Duration
	Duration() time.Duration
}
