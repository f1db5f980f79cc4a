// ABOUTME: Tests for the submission orchestrator, both modes and the artifact player
// ABOUTME: End-to-end scenarios run against fake backends and a fake widget

package workflow

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"remix-studio/backend"
	"remix-studio/media"
)

// fakeWidget records loads and toggles
type fakeWidget struct {
	loaded  []string
	resets  int
	playing bool
	loadErr error
}

func (w *fakeWidget) Load(ctx context.Context, url string) error {
	if w.loadErr != nil {
		return w.loadErr
	}

	w.loaded = append(w.loaded, url)

	return nil
}

func (w *fakeWidget) PlayPause() { w.playing = !w.playing }

func (w *fakeWidget) IsPlaying() bool { return w.playing }

func (w *fakeWidget) Reset() {
	w.resets++
	w.playing = false
}

// fakeAPI answers remix and create calls
type fakeAPI struct {
	url       string
	err       error
	panicMsg  string
	remixReqs []backend.RemixRequest
	createReq []backend.CreateRequest
}

func (a *fakeAPI) Remix(ctx context.Context, req backend.RemixRequest) (string, error) {
	if a.panicMsg != "" {
		panic(a.panicMsg)
	}

	a.remixReqs = append(a.remixReqs, req)

	return a.url, a.err
}

func (a *fakeAPI) Create(ctx context.Context, req backend.CreateRequest) (string, error) {
	a.createReq = append(a.createReq, req)
	return a.url, a.err
}

// fakeDownloads records download calls
type fakeDownloads struct {
	urls  []string
	names []string
}

func (d *fakeDownloads) save(ctx context.Context, url, filename string) (string, error) {
	d.urls = append(d.urls, url)
	d.names = append(d.names, filename)

	return "/downloads/" + filename, nil
}

type remixFixture struct {
	mode      *RemixMode
	search    *SearchSelector
	debouncer *manualDebouncer
	fired     *[]uint64
	api       *fakeAPI
	widget    *fakeWidget
	downloads *fakeDownloads
}

func newRemixFixture() *remixFixture {
	search, d, fired := newTestSearch()
	f := &remixFixture{
		search:    search,
		debouncer: d,
		fired:     fired,
		api:       &fakeAPI{url: "https://x/remix.mp3"},
		widget:    &fakeWidget{},
		downloads: &fakeDownloads{},
	}

	player := NewArtifactPlayer(f.widget, RemixFilename, f.downloads.save)
	f.mode = NewRemixMode(search, NewGenreSelector([]string{"rock", "jazz", "pop"}), f.api, player, nil)

	return f
}

// choose runs a search returning two items and selects id plus genre
func (f *remixFixture) choose(t *testing.T, id, genre string) {
	t.Helper()

	req := issue(t, f.search, f.debouncer, f.fired, "lofi")
	f.search.Resolve(req.Seq, items("abc123", "xyz789"), nil)

	if err := f.search.Select(id); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if err := f.mode.Genre.Select(genre); err != nil {
		t.Fatalf("Genre.Select() error = %v", err)
	}
}

func TestScenarioRemixEndToEnd(t *testing.T) {
	f := newRemixFixture()

	if f.mode.Submission.Ready() {
		t.Fatal("Gate must be closed before choosing")
	}

	f.choose(t, "abc123", "jazz")

	if !f.mode.Submission.Ready() {
		t.Fatal("Gate should open with track and genre")
	}

	if err := f.mode.Submission.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(f.api.remixReqs) != 1 || f.api.remixReqs[0] != (backend.RemixRequest{TrackID: "abc123", Genre: "jazz"}) {
		t.Errorf("Remix requests = %v", f.api.remixReqs)
	}

	state := f.mode.Submission.State()
	if state.AudioURL != "https://x/remix.mp3" || state.IsLoading {
		t.Errorf("State = %+v", state)
	}

	player := f.mode.Submission.Player()
	if !player.Visible() || len(f.widget.loaded) != 1 || f.widget.loaded[0] != "https://x/remix.mp3" {
		t.Errorf("Player visible=%v loads=%v", player.Visible(), f.widget.loaded)
	}

	path, err := player.Download(context.Background())
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if path != "/downloads/remix.mp3" || f.downloads.urls[0] != "https://x/remix.mp3" {
		t.Errorf("Download saved %q from %v", path, f.downloads.urls)
	}
}

func TestSecondSubmissionRejectedWhileLoading(t *testing.T) {
	f := newRemixFixture()
	f.choose(t, "abc123", "rock")

	job, err := f.mode.Submission.Begin()
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if !f.mode.Submission.State().IsLoading {
		t.Fatal("Expected loading after Begin")
	}

	if f.mode.Submission.Ready() {
		t.Error("Gate must report not ready while loading")
	}

	if _, err := f.mode.Submission.Begin(); !errors.Is(err, ErrBusy) {
		t.Errorf("Second Begin() error = %v, want ErrBusy", err)
	}

	if err := f.mode.Submission.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Submit() while loading error = %v, want ErrBusy", err)
	}

	url, err := f.mode.Submission.Run(context.Background(), job)
	ticket, ok := f.mode.Submission.Resolve(job.ID, url, err)

	if !ok {
		t.Fatal("Resolve() should hand the artifact to the player")
	}

	if !f.mode.Submission.Loading() {
		t.Error("Loading must stay set until the player load finishes")
	}

	f.mode.Submission.Loaded(job.ID, ticket, f.mode.Submission.Player().Load(context.Background(), ticket))

	if f.mode.Submission.Loading() {
		t.Error("Loading must clear after the load")
	}

	if len(f.api.remixReqs) != 1 {
		t.Errorf("Expected exactly one backend call, got %d", len(f.api.remixReqs))
	}
}

func TestNotReadyIsRejected(t *testing.T) {
	f := newRemixFixture()

	if err := f.mode.Submission.Submit(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Submit() error = %v, want ErrNotReady", err)
	}

	if f.mode.Submission.Loading() {
		t.Error("Rejected submission must not set loading")
	}
}

func TestScenarioRemixFailure(t *testing.T) {
	f := newRemixFixture()
	f.api.err = backend.ErrNetwork
	f.choose(t, "abc123", "jazz")

	err := f.mode.Submission.Submit(context.Background())
	if !errors.Is(err, backend.ErrNetwork) {
		t.Fatalf("Submit() error = %v, want ErrNetwork", err)
	}

	state := f.mode.Submission.State()
	if state.IsLoading {
		t.Error("Loading must clear after failure")
	}

	if state.AudioURL != "" {
		t.Errorf("AudioURL = %q, want unchanged empty", state.AudioURL)
	}

	if f.mode.Submission.Notice() != RemixFailedNotice {
		t.Errorf("Notice = %q", f.mode.Submission.Notice())
	}

	if id, _ := f.search.Selected(); id != "abc123" || len(f.search.Results()) != 2 {
		t.Error("Failure must leave results and selection alone")
	}

	if genre, _ := f.mode.Genre.Selected(); genre != "jazz" {
		t.Error("Failure must leave the genre alone")
	}

	f.mode.Submission.DismissNotice()

	if f.mode.Submission.Notice() != "" {
		t.Error("DismissNotice should clear the notice")
	}

	// Retry succeeds
	f.api.err = nil
	if err := f.mode.Submission.Submit(context.Background()); err != nil {
		t.Fatalf("Retry Submit() error = %v", err)
	}
}

func TestFailureKeepsPreviousArtifact(t *testing.T) {
	f := newRemixFixture()
	f.choose(t, "abc123", "jazz")

	if err := f.mode.Submission.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	f.api.err = backend.ErrMalformedResponse
	_ = f.mode.Submission.Submit(context.Background())

	if got := f.mode.Submission.State().AudioURL; got != "https://x/remix.mp3" {
		t.Errorf("AudioURL = %q, want previous artifact", got)
	}
}

func TestPanicInCallClearsLoading(t *testing.T) {
	f := newRemixFixture()
	f.api.panicMsg = "boom"
	f.choose(t, "abc123", "jazz")

	if err := f.mode.Submission.Submit(context.Background()); err == nil {
		t.Fatal("Expected error from panicking call")
	}

	if f.mode.Submission.Loading() {
		t.Error("Loading must clear after a panic")
	}

	if f.mode.Submission.Notice() == "" {
		t.Error("Expected a failure notice")
	}
}

func TestLoadFailureShowsNotice(t *testing.T) {
	f := newRemixFixture()
	f.widget.loadErr = errors.New("decode failed")
	f.choose(t, "abc123", "jazz")

	if err := f.mode.Submission.Submit(context.Background()); err == nil {
		t.Fatal("Expected load error")
	}

	if f.mode.Submission.Loading() {
		t.Error("Loading must clear after a failed load")
	}

	if f.mode.Submission.Player().Visible() {
		t.Error("Controls must stay hidden after a failed load")
	}

	if f.mode.Submission.Notice() != RemixFailedNotice {
		t.Errorf("Notice = %q", f.mode.Submission.Notice())
	}
}

func TestResolveIgnoresUnknownJob(t *testing.T) {
	f := newRemixFixture()
	f.choose(t, "abc123", "jazz")

	job, _ := f.mode.Submission.Begin()

	if _, ok := f.mode.Submission.Resolve(job.ID+1, "x", nil); ok {
		t.Error("Outcome for another job must be ignored")
	}

	if !f.mode.Submission.Loading() {
		t.Error("Ignored outcome must not end the current submission")
	}
}

func TestPlayerTogglePlayback(t *testing.T) {
	w := &fakeWidget{}
	p := NewArtifactPlayer(w, RemixFilename, nil)

	if p.TogglePlayback() || w.playing {
		t.Fatal("Toggle before load must be a no-op")
	}

	ticket := p.Begin("/a.wav")
	p.Finish(ticket, p.Load(context.Background(), ticket))

	if !p.TogglePlayback() {
		t.Error("First toggle should report playing")
	}

	if p.TogglePlayback() {
		t.Error("Second toggle should report paused")
	}
}

func TestPlayerIgnoresStaleLoad(t *testing.T) {
	w := &fakeWidget{}
	p := NewArtifactPlayer(w, CreationFilename, nil)

	first := p.Begin("/first.wav")
	second := p.Begin("/second.wav")

	if w.resets != 2 {
		t.Errorf("Each load should reset the widget, resets = %d", w.resets)
	}

	if p.Finish(first, nil) {
		t.Error("Stale ticket must be ignored")
	}

	if p.Visible() {
		t.Error("Stale completion must not reveal controls")
	}

	if !p.Finish(second, nil) || p.URL() != "/second.wav" {
		t.Errorf("Current ticket should apply, URL = %q", p.URL())
	}
}

func TestPlayerDownloadNoopWithoutArtifact(t *testing.T) {
	d := &fakeDownloads{}
	p := NewArtifactPlayer(&fakeWidget{}, CreationFilename, d.save)

	path, err := p.Download(context.Background())
	if err != nil || path != "" {
		t.Errorf("Download() = %q, %v; want no-op", path, err)
	}

	if len(d.urls) != 0 {
		t.Error("Download without artifact must not call the saver")
	}

	if _, ok := p.PrepareDownload(); ok {
		t.Error("PrepareDownload should report nothing to save")
	}
}

func writeAudio(t *testing.T, dir, name, content string) media.FileInfo {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}

	return media.FileInfo{Path: path, Name: name, MediaType: "audio/mpeg"}
}

func TestScenarioCreateWithoutLyrics(t *testing.T) {
	api := &fakeAPI{url: "/static/output/c.wav"}
	w := &fakeWidget{}
	d := &fakeDownloads{}

	uploads := NewUploadManager(DefaultMixWeight, 10)
	mode := NewCreateMode(uploads, []string{"male_1", "female_1"}, api, NewArtifactPlayer(w, CreationFilename, d.save), nil)

	if mode.Submission.Ready() {
		t.Fatal("Gate must be closed with no uploads")
	}

	dir := t.TempDir()
	uploads.Add([]media.FileInfo{writeAudio(t, dir, "a.mp3", "aaa"), writeAudio(t, dir, "b.mp3", "bbb")})
	_ = uploads.SetWeight(0, 0.3)
	_ = uploads.SetWeight(1, 0.7)
	mode.SetLyrics("   ")

	if err := mode.Submission.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	req := api.createReq[0]
	if len(req.MixRatios) != 2 || req.MixRatios[0] != 0.3 || req.MixRatios[1] != 0.7 {
		t.Errorf("MixRatios = %v, want [0.3 0.7]", req.MixRatios)
	}

	if req.Lyrics != "" || req.VoiceStyle != "" {
		t.Errorf("Blank lyrics must send no vocal fields, got %q/%q", req.Lyrics, req.VoiceStyle)
	}

	if len(req.Files) != 2 || req.Files[0].Name != "a.mp3" || req.Files[1].Name != "b.mp3" {
		t.Errorf("Files = %v", req.Files)
	}

	if _, err := mode.Submission.Player().Download(context.Background()); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if d.names[0] != "creation.mp3" {
		t.Errorf("Download name = %q, want creation.mp3", d.names[0])
	}
}

func TestCreateWithLyrics(t *testing.T) {
	api := &fakeAPI{url: "/static/output/c.wav"}
	uploads := NewUploadManager(DefaultMixWeight, 10)
	mode := NewCreateMode(uploads, []string{"male_1", "female_1"}, api, NewArtifactPlayer(&fakeWidget{}, CreationFilename, nil), nil)

	uploads.Add([]media.FileInfo{audio("a.mp3")})
	mode.SetLyrics("  la la la \n")

	if err := mode.SetVoiceStyle("robot"); !errors.Is(err, ErrUnknownVoice) {
		t.Errorf("SetVoiceStyle(robot) error = %v", err)
	}

	if err := mode.SetVoiceStyle("female_1"); err != nil {
		t.Fatalf("SetVoiceStyle() error = %v", err)
	}

	job, err := mode.Submission.Begin()
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if job.Payload.Lyrics != "la la la" || job.Payload.VoiceStyle != "female_1" {
		t.Errorf("Payload vocals = %q/%q", job.Payload.Lyrics, job.Payload.VoiceStyle)
	}

	if job.Payload.MixRatios[0] != 0.5 {
		t.Errorf("Default weight = %v, want 0.5", job.Payload.MixRatios[0])
	}
}

func TestCreateMultipartOverHTTP(t *testing.T) {
	var (
		ratios    string
		hasLyrics bool
		files     int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ratios = r.FormValue("mix_ratios")
		_, hasLyrics = r.MultipartForm.Value["lyrics"]
		files = len(r.MultipartForm.File["files"])

		_, _ = io.WriteString(w, `{"url":"/static/output/c.wav"}`)
	}))
	defer srv.Close()

	client := backend.NewClient(srv.URL, 5*time.Second)
	uploads := NewUploadManager(DefaultMixWeight, 10)
	mode := NewCreateMode(uploads, nil, client, NewArtifactPlayer(&fakeWidget{}, CreationFilename, nil), nil)

	dir := t.TempDir()
	uploads.Add([]media.FileInfo{
		writeAudio(t, dir, "a.mp3", "aaa"),
		other("readme.txt", "text/plain"),
		writeAudio(t, dir, "b.mp3", "bbb"),
	})
	_ = uploads.SetWeight(0, 0.3)
	_ = uploads.SetWeight(1, 0.7)

	if err := mode.Submission.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if ratios != "[0.3,0.7]" || hasLyrics || files != 2 {
		t.Errorf("Server saw ratios=%q lyrics=%v files=%d", ratios, hasLyrics, files)
	}
}
