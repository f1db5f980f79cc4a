// ABOUTME: Status line shown while a headless command waits on the backend
// ABOUTME: Animates a spinner on terminals and stays silent in pipes and cron jobs

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"
)

const spinnerUpdateInterval = 120 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// progress prints a self-overwriting status line while work runs
type progress struct {
	out      io.Writer
	terminal bool
	interval time.Duration
}

// formatElapsed renders elapsed time right-aligned to 6 characters
func formatElapsed(d time.Duration) string {
	var s string
	if d >= time.Minute {
		s = fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	} else {
		s = fmt.Sprintf("%ds", int(d.Seconds()))
	}

	return fmt.Sprintf("%6s", s)
}

// run calls work and animates label until it returns
func (p progress) run(ctx context.Context, label string, work func(ctx context.Context) error) error {
	done := make(chan error, 1)
	start := time.Now()

	go func() { done <- work(ctx) }()

	if !p.terminal {
		return <-done
	}

	interval := p.interval
	if interval <= 0 {
		interval = spinnerUpdateInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := 0

	for {
		select {
		case err := <-done:
			fmt.Fprint(p.out, "\r\033[K")
			return err
		case <-ticker.C:
			fmt.Fprintf(p.out, "\r%s %s %s", formatElapsed(time.Since(start)), label, spinnerFrames[frame])
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}
