// ABOUTME: Audio file classification and metadata reading for uploads
// ABOUTME: Decides the media type of a candidate file and reads display tags when present

// Package media classifies local files picked or dropped for upload.
// Only files whose media type is audio/* are accepted by the upload list.
package media

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dhowden/tag"

	"remix-studio/pool"
)

// FileInfo describes one candidate file
type FileInfo struct {
	Path      string // Absolute or working-directory relative path
	Name      string // Base name shown in lists
	MediaType string // e.g. "audio/mpeg"; empty when unknown
	Size      int64
	Title     string // From tags, empty if not available
	Artist    string // From tags, empty if not available
	Err       error  // Set when the file could not be inspected
}

// IsAudio reports whether the media type is classified as audio
func (f FileInfo) IsAudio() bool {
	return f.Err == nil && IsAudioType(f.MediaType)
}

// Open opens the underlying file for reading
func (f FileInfo) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// Label returns "Artist - Title" when tags exist, otherwise the file name
func (f FileInfo) Label() string {
	switch {
	case f.Artist != "" && f.Title != "":
		return f.Artist + " - " + f.Title
	case f.Title != "":
		return f.Title
	default:
		return f.Name
	}
}

// IsAudioType reports whether a media type string is in the audio/ family
func IsAudioType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "audio/")
}

// Extension table consulted before the platform mime database, which often lacks audio entries
var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".aif":  "audio/aiff",
	".aiff": "audio/aiff",
	".weba": "audio/webm",
}

// AudioExtensions returns the file extensions treated as audio, sorted
func AudioExtensions() []string {
	exts := make([]string, 0, len(audioExtensions))
	for ext := range audioExtensions {
		exts = append(exts, ext)
	}

	slices.Sort(exts)

	return exts
}

// Container types reported by tag.Identify
var tagFileTypes = map[tag.FileType]string{
	tag.MP3:  "audio/mpeg",
	tag.M4A:  "audio/mp4",
	tag.M4B:  "audio/mp4",
	tag.M4P:  "audio/mp4",
	tag.ALAC: "audio/mp4",
	tag.FLAC: "audio/flac",
	tag.OGG:  "audio/ogg",
	tag.DSF:  "audio/dsf",
}

// TypeByName classifies a file from its name only
func TypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := audioExtensions[ext]; ok {
		return t
	}

	if t := mime.TypeByExtension(ext); t != "" {
		// Drop parameters such as "; charset=utf-8"
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}

		return strings.TrimSpace(t)
	}

	return ""
}

// sniff inspects file content when the name gives no answer
func sniff(f *os.File) string {
	if _, fileType, err := tag.Identify(f); err == nil {
		if t, ok := tagFileTypes[fileType]; ok {
			return t
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ""
	}

	head := make([]byte, 512)

	n, _ := io.ReadFull(f, head)
	if n == 0 {
		return ""
	}

	t := http.DetectContentType(head[:n])
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}

	if t == "application/octet-stream" || strings.HasPrefix(t, "text/plain") {
		return ""
	}

	return t
}

// Probe classifies the file at path and reads its tags when it is audio
func Probe(path string) FileInfo {
	info := FileInfo{Path: path, Name: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		info.Err = fmt.Errorf("failed to open file: %w", err)
		return info
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		info.Err = fmt.Errorf("failed to stat file: %w", err)
		return info
	}

	if stat.IsDir() {
		info.Err = fmt.Errorf("%s is a directory", path)
		return info
	}

	info.Size = stat.Size()

	info.MediaType = TypeByName(info.Name)
	if info.MediaType == "" {
		info.MediaType = sniff(f)
	}

	if !IsAudioType(info.MediaType) {
		return info
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return info
	}

	// Untagged audio is still valid audio
	if metadata, err := tag.ReadFrom(f); err == nil {
		info.Title = strings.TrimSpace(metadata.Title())
		info.Artist = strings.TrimSpace(metadata.Artist())
	}

	return info
}

// ProbeAll probes a batch of paths in parallel and returns results in input order
func ProbeAll(paths []string) []FileInfo {
	return pool.Map(paths, 0, Probe)
}
