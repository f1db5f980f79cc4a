// ABOUTME: Tests for the stub backend routes
// ABOUTME: Drives the handler through the real backend client over httptest

package stubserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"remix-studio/backend"
	"remix-studio/waveform"
)

func newTestServer(t *testing.T) (*httptest.Server, *backend.Client) {
	t.Helper()

	s, err := New(Options{
		StaticDir:   t.TempDir(),
		Genres:      []string{"Rock", "Jazz"},
		VoiceStyles: []string{"male_1", "female_1"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return srv, backend.NewClient(srv.URL, 5*time.Second)
}

func memFile(name string, data []byte) backend.UploadFile {
	return backend.UploadFile{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func TestNewRequiresStaticDir(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("Expected error without static dir")
	}
}

func TestSearchIsDeterministic(t *testing.T) {
	_, client := newTestServer(t)

	first, err := client.Search(context.Background(), "lofi", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(first) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(first))
	}

	second, err := client.Search(context.Background(), "LoFi", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Result %d id differs between identical queries: %q vs %q", i, first[i].ID, second[i].ID)
		}

		if len(first[i].ID) != 11 {
			t.Errorf("Result id %q should be 11 characters", first[i].ID)
		}
	}

	empty, err := client.Search(context.Background(), "   ", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(empty) != 0 {
		t.Errorf("Blank query returned %d results", len(empty))
	}
}

func TestRemixProducesPlayableArtifact(t *testing.T) {
	_, client := newTestServer(t)

	url, err := client.Remix(context.Background(), backend.RemixRequest{TrackID: "abc123", Genre: "jazz"})
	if err != nil {
		t.Fatalf("Remix() error = %v", err)
	}

	if !strings.HasPrefix(url, "/static/output/abc123_") {
		t.Errorf("URL = %q", url)
	}

	body, err := client.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer func() { _ = body.Close() }()

	data, _ := io.ReadAll(body)

	pcm, err := waveform.DecodeWAV(data)
	if err != nil {
		t.Fatalf("Artifact is not a WAV: %v", err)
	}

	if pcm.Duration() < 1 {
		t.Errorf("Artifact duration %v too short", pcm.Duration())
	}
}

func TestRemixRejectsUnknownGenre(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.Remix(context.Background(), backend.RemixRequest{TrackID: "abc", Genre: "Polka"})
	if !errors.Is(err, backend.ErrNetwork) {
		t.Errorf("Remix() error = %v, want ErrNetwork", err)
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		ratios  []float64
		lyrics  string
		voice   string
		wantErr bool
	}{
		{"plain mix", []float64{0.3, 0.7}, "", "", false},
		{"with vocals", []float64{0.5, 0.5}, "hello", "female_1", false},
		{"ratio count mismatch", []float64{0.5}, "", "", true},
		{"ratio out of range", []float64{0.5, 1.5}, "", "", true},
		{"unknown voice", []float64{0.5, 0.5}, "hello", "robot", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t)

			url, err := client.Create(context.Background(), backend.CreateRequest{
				Files:      []backend.UploadFile{memFile("a.mp3", []byte("ID3aaaa")), memFile("b.mp3", []byte("ID3bbbb"))},
				MixRatios:  tt.ratios,
				Lyrics:     tt.lyrics,
				VoiceStyle: tt.voice,
			})

			if tt.wantErr {
				if !errors.Is(err, backend.ErrNetwork) {
					t.Errorf("Create() error = %v, want ErrNetwork", err)
				}

				return
			}

			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if !strings.HasPrefix(url, "/static/output/creation_") {
				t.Errorf("URL = %q", url)
			}
		})
	}
}

func TestGenres(t *testing.T) {
	_, client := newTestServer(t)

	genres, err := client.Genres(context.Background())
	if err != nil {
		t.Fatalf("Genres() error = %v", err)
	}

	if len(genres) != 2 || genres[0] != "Rock" {
		t.Errorf("Genres() = %v", genres)
	}
}

func TestUnknownAPIPath(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/nope")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode error = %v", err)
	}

	if body["detail"] != "API endpoint not found" {
		t.Errorf("detail = %q", body["detail"])
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/remix", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("Expected Access-Control-Allow-Origin header")
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s, err := New(Options{StaticDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
