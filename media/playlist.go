// ABOUTME: Reads M3U/M3U8 playlists so a whole set of stems can be uploaded at once
// ABOUTME: Entries resolve relative to the playlist file; comments and blank lines are skipped

package media

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IsPlaylist reports whether path names an M3U or M3U8 playlist
func IsPlaylist(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8":
		return true
	default:
		return false
	}
}

// ReadPlaylist returns the entries of an M3U8 playlist in order
func ReadPlaylist(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	base := filepath.Dir(path)

	var entries []string

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "\ufeff")

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		entries = append(entries, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading playlist: %w", err)
	}

	return entries, nil
}

// ExpandPlaylists replaces every playlist in paths with its entries, keeping order
func ExpandPlaylists(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))

	for _, p := range paths {
		if !IsPlaylist(p) {
			out = append(out, p)
			continue
		}

		entries, err := ReadPlaylist(p)
		if err != nil {
			return nil, err
		}

		out = append(out, entries...)
	}

	return out, nil
}
