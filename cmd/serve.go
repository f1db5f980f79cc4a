// ABOUTME: serve-stub command: runs the local stand-in backend
// ABOUTME: Useful for demos and for driving the studio without the real service

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"remix-studio/stubserver"
)

var (
	serveAddr   string
	serveStatic string
	serveDelay  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve-stub",
	Short: "Run a local stub backend that renders tones instead of real remixes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := sess.config.Get()

		srv, err := stubserver.New(stubserver.Options{
			StaticDir:   serveStatic,
			Genres:      cfg.Genres,
			VoiceStyles: cfg.VoiceStyles,
			Delay:       serveDelay,
			Logger:      sess.log,
		})
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		if isTTY(os.Stdout) {
			fmt.Printf("Stub backend on http://%s (Ctrl+C to stop)\n", serveAddr)
		}

		return srv.ListenAndServe(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8000", "listen address")
	serveCmd.Flags().StringVar(&serveStatic, "static", "stub-static", "directory served under /static/")
	serveCmd.Flags().DurationVar(&serveDelay, "delay", 2*time.Second, "simulated processing time")

	rootCmd.AddCommand(serveCmd)
}
