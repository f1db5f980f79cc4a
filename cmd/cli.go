// ABOUTME: Headless search, remix and create commands
// ABOUTME: Run the same selectors, orchestrators and player as the studio, then save the artifact

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"remix-studio/backend"
	"remix-studio/config"
	"remix-studio/media"
	"remix-studio/waveform"
	"remix-studio/workflow"
)

const previewWidth = 60

// studioAPI is everything the headless flows need from the backend
type studioAPI interface {
	workflow.RemixAPI
	workflow.CreateAPI
	waveform.Fetcher
	Search(ctx context.Context, query string, maxResults int) ([]backend.SearchResultItem, error)
	Genres(ctx context.Context) ([]string, error)
	Download(ctx context.Context, url, dir, filename string) (string, error)
}

// flow runs one headless workflow
type flow struct {
	api      studioAPI
	cfg      config.Config
	out      io.Writer
	progress progress
	debugf   func(string, ...interface{})
}

func newFlow(s *session) flow {
	return flow{
		api:      s.client,
		cfg:      s.config.Get(),
		out:      os.Stdout,
		progress: progress{out: os.Stdout, terminal: isTTY(os.Stdout)},
		debugf:   s.debugf,
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var (
	searchMax int

	remixPick  int
	remixGenre string
	remixOut   string

	createWeights []float64
	createLyrics  string
	createVoice   string
	createOut     string
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		_, err := newFlow(sess).search(ctx, strings.Join(args, " "), searchMax)

		return err
	},
}

var remixCmd = &cobra.Command{
	Use:   "remix QUERY",
	Short: "Remix a catalog track into another genre and save it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		_, err := newFlow(sess).remix(ctx, remixOptions{
			Query:  strings.Join(args, " "),
			Pick:   remixPick,
			Genre:  remixGenre,
			OutDir: outDir(remixOut),
		})

		return err
	},
}

var createCmd = &cobra.Command{
	Use:   "create FILE...",
	Short: "Mix local audio files, optionally with sung lyrics, and save the result",
	Long: `Uploads each FILE in order. An .m3u or .m3u8 argument is replaced by its
entries, resolved relative to the playlist. Files that are not audio are skipped.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		_, err := newFlow(sess).create(ctx, createOptions{
			Files:   args,
			Weights: createWeights,
			Lyrics:  createLyrics,
			Voice:   createVoice,
			OutDir:  outDir(createOut),
		})

		return err
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 0, "maximum results (default from config)")

	remixCmd.Flags().IntVarP(&remixPick, "pick", "p", 1, "which search result to remix (1-based)")
	remixCmd.Flags().StringVarP(&remixGenre, "genre", "g", "", "target genre")
	remixCmd.Flags().StringVarP(&remixOut, "out", "o", "", "download directory (default from config)")
	_ = remixCmd.MarkFlagRequired("genre")

	createCmd.Flags().Float64SliceVarP(&createWeights, "weights", "w", nil, "mix weight per file in [0,1] (default 0.5 each)")
	createCmd.Flags().StringVarP(&createLyrics, "lyrics", "l", "", "lyrics to sing over the mix")
	createCmd.Flags().StringVar(&createVoice, "voice", "", "voice style for the lyrics")
	createCmd.Flags().StringVarP(&createOut, "out", "o", "", "download directory (default from config)")

	rootCmd.AddCommand(searchCmd, remixCmd, createCmd)
}

func outDir(flag string) string {
	if flag != "" {
		return flag
	}

	return sess.config.Get().DownloadDir
}

// saver downloads artifacts into dir
func (f flow) saver(dir string) workflow.DownloadFunc {
	return func(ctx context.Context, url, filename string) (string, error) {
		return f.api.Download(ctx, url, dir, filename)
	}
}

// search runs one query through a search selector and prints the results
func (f flow) search(ctx context.Context, query string, maxResults int) (*workflow.SearchSelector, error) {
	if maxResults <= 0 {
		maxResults = f.cfg.MaxResults
	}

	var gen uint64

	// Headless input is complete at once, so the quiet period is skipped
	s := workflow.NewSearchSelector(func(fn func()) { fn() }, maxResults, func(g uint64) { gen = g }, f.debugf)
	s.Input(query)

	req, ok := s.Due(gen)
	if !ok {
		return nil, fmt.Errorf("%w: empty query", errUsage)
	}

	items, err := f.api.Search(ctx, req.Query, req.MaxResults)
	s.Resolve(req.Seq, items, err)

	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "#\tID\tTitle\tChannel"); err != nil {
		log.Printf("Warning: failed to write header: %v", err)
	}

	for i, r := range s.Results() {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, r.ID, truncate(r.Title, 50), truncate(r.ChannelName, 25)); err != nil {
			log.Printf("Warning: failed to write result %d: %v", i+1, err)
		}
	}

	if err := w.Flush(); err != nil {
		log.Printf("Warning: failed to flush output: %v", err)
	}

	if len(s.Results()) == 0 {
		fmt.Fprintln(f.out, "No results.")
	}

	return s, nil
}

// remixOptions selects the track and genre of a headless remix
type remixOptions struct {
	Query  string
	Pick   int
	Genre  string
	OutDir string
}

// remix searches, selects, submits and saves the remix; it returns the saved path
func (f flow) remix(ctx context.Context, opts remixOptions) (string, error) {
	search, err := f.search(ctx, opts.Query, 0)
	if err != nil {
		return "", err
	}

	if err := search.SelectAt(opts.Pick - 1); err != nil {
		return "", fmt.Errorf("%w: no result #%d", errUsage, opts.Pick)
	}

	genres := f.cfg.Genres
	if offered, err := f.api.Genres(ctx); err == nil {
		genres = offered
	} else {
		f.debugf("[CLI] genre list unavailable, using configured genres: %v", err)
	}

	widget := waveform.New(f.api, waveformBuckets)
	player := workflow.NewArtifactPlayer(widget, workflow.RemixFilename, f.saver(opts.OutDir))
	mode := workflow.NewRemixMode(search, workflow.NewGenreSelector(genres), f.api, player, f.debugf)

	if err := mode.Genre.Select(opts.Genre); err != nil {
		return "", fmt.Errorf("%w: genre %q (choose from %s)", errUsage, opts.Genre, strings.Join(genres, ", "))
	}

	return submitFlow(ctx, f, "Creating your remix...", mode.Submission, widget)
}

// createOptions describes a headless creation
type createOptions struct {
	Files   []string
	Weights []float64
	Lyrics  string
	Voice   string
	OutDir  string
}

// create uploads, weights, submits and saves the creation; it returns the saved path
func (f flow) create(ctx context.Context, opts createOptions) (string, error) {
	files, err := media.ExpandPlaylists(opts.Files)
	if err != nil {
		return "", err
	}

	infos := media.ProbeAll(files)

	uploads := workflow.NewUploadManager(f.cfg.DefaultWeight, 0)
	uploads.Add(infos)

	for _, info := range infos {
		if !info.IsAudio() {
			fmt.Fprintf(f.out, "Skipping %s (not audio)\n", info.Name)
		}
	}

	if len(opts.Weights) > 0 {
		if len(opts.Weights) != uploads.Len() {
			return "", fmt.Errorf("%w: %d weights for %d audio files", errUsage, len(opts.Weights), uploads.Len())
		}

		for i, w := range opts.Weights {
			_ = uploads.SetWeight(i, w)
		}
	}

	widget := waveform.New(f.api, waveformBuckets)
	player := workflow.NewArtifactPlayer(widget, workflow.CreationFilename, f.saver(opts.OutDir))
	mode := workflow.NewCreateMode(uploads, f.cfg.VoiceStyles, f.api, player, f.debugf)
	mode.SetLyrics(opts.Lyrics)

	if opts.Voice != "" {
		if err := mode.SetVoiceStyle(opts.Voice); err != nil {
			return "", fmt.Errorf("%w: voice %q (choose from %s)", errUsage, opts.Voice, strings.Join(mode.Voices(), ", "))
		}
	}

	w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "#\tTrack\tWeight"); err != nil {
		log.Printf("Warning: failed to write header: %v", err)
	}

	for _, row := range uploads.Rows() {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%d%%\n", row.Position+1, truncate(row.Name, 50), row.Percent); err != nil {
			log.Printf("Warning: failed to write track %d: %v", row.Position+1, err)
		}
	}

	if err := w.Flush(); err != nil {
		log.Printf("Warning: failed to flush output: %v", err)
	}

	if c := mode.Creation(); c != nil {
		fmt.Fprintf(f.out, "Vocals: %s\n", c.VoiceStyle)
	}

	return submitFlow(ctx, f, "Creating your track...", mode.Submission, widget)
}

// submitFlow runs one orchestrated submission, previews the artifact and downloads it
func submitFlow[P any](ctx context.Context, f flow, label string, o *workflow.Orchestrator[P], widget *waveform.Widget) (string, error) {
	err := f.progress.run(ctx, label, o.Submit)

	switch {
	case errors.Is(err, workflow.ErrNotReady):
		if o.Mode() == workflow.ModeCreate {
			return "", fmt.Errorf("%w: add at least one audio file", errUsage)
		}

		return "", fmt.Errorf("%w: choose a track and a genre", errUsage)
	case err != nil:
		if notice := o.Notice(); notice != "" {
			fmt.Fprintln(f.out, notice)
		}

		return "", err
	}

	fmt.Fprintln(f.out, widget.View(previewWidth))
	fmt.Fprintf(f.out, "Artifact: %s (%s)\n", o.State().AudioURL, widget.Duration().Round(time.Millisecond))

	path, err := o.Player().Download(ctx)
	if err != nil {
		return "", err
	}

	fmt.Fprintf(f.out, "Saved to %s\n", path)

	return path, nil
}
