// ABOUTME: SearchSelector: debounced catalog queries, sequenced responses, single selection
// ABOUTME: Only the most recently issued query may replace the displayed results

// Package workflow holds the state of the remix and create modes: search and
// genre selection, the upload list, readiness gates, the submission
// orchestrator and the artifact player. All methods are meant to be called
// from a single event loop; only Orchestrator.Run and ArtifactPlayer.Load
// may run elsewhere.
package workflow

import (
	"strings"
	"time"

	"github.com/bep/debounce"

	"remix-studio/backend"
)

// DefaultSearchDelay is the quiet period before a query is issued
const DefaultSearchDelay = 500 * time.Millisecond

// Debouncer runs the most recently passed function once calls stop for the quiet period
type Debouncer func(f func())

// NewDebouncer returns a cancel-and-restart timer with the given quiet period
func NewDebouncer(after time.Duration) Debouncer {
	return debounce.New(after)
}

// SearchRequest is one query the caller should send to the backend
type SearchRequest struct {
	Seq        uint64
	Query      string
	MaxResults int
}

// SearchSelector tracks the query text, the displayed results and the selected item
type SearchSelector struct {
	debounce   Debouncer
	due        func(gen uint64)
	maxResults int
	debugf     func(string, ...interface{})

	text     string
	gen      uint64 // bumped on every input
	issued   uint64 // sequence of the latest issued query
	results  []backend.SearchResultItem
	selected string
}

// NewSearchSelector creates a selector. due is invoked from the timer goroutine when
// input has been quiet; it must only hand the generation back to the event loop.
func NewSearchSelector(d Debouncer, maxResults int, due func(gen uint64), debugf func(string, ...interface{})) *SearchSelector {
	if maxResults <= 0 {
		maxResults = 5
	}

	if debugf == nil {
		debugf = func(string, ...interface{}) {}
	}

	return &SearchSelector{debounce: d, due: due, maxResults: maxResults, debugf: debugf}
}

// Input records new query text and restarts the quiet period.
// Blank text clears the results at once, cancels the timer and invalidates in-flight queries.
func (s *SearchSelector) Input(text string) {
	s.text = text
	s.gen++

	if strings.TrimSpace(text) == "" {
		s.results = nil
		s.issued++
		s.debounce(func() {})

		return
	}

	gen := s.gen
	s.debounce(func() { s.due(gen) })
}

// Due turns an expired timer into a request when gen is still the latest input
func (s *SearchSelector) Due(gen uint64) (SearchRequest, bool) {
	if gen != s.gen {
		return SearchRequest{}, false
	}

	query := strings.TrimSpace(s.text)
	if query == "" {
		return SearchRequest{}, false
	}

	s.issued++

	return SearchRequest{Seq: s.issued, Query: query, MaxResults: s.maxResults}, true
}

// Resolve applies a search response. It reports whether the results changed.
func (s *SearchSelector) Resolve(seq uint64, items []backend.SearchResultItem, err error) bool {
	if seq != s.issued {
		s.debugf("[SEARCH] dropping stale response seq=%d latest=%d", seq, s.issued)
		return false
	}

	if err != nil {
		s.debugf("[SEARCH] query failed: %v", err)
		return false
	}

	s.results = append([]backend.SearchResultItem(nil), items...)

	return true
}

// Latest reports whether seq belongs to the most recently issued query
func (s *SearchSelector) Latest(seq uint64) bool {
	return seq == s.issued
}

// Select makes id the only selected result
func (s *SearchSelector) Select(id string) error {
	for _, item := range s.results {
		if item.ID == id {
			s.selected = id
			return nil
		}
	}

	return ErrUnknownResult
}

// SelectAt selects the result at index i of the displayed list
func (s *SearchSelector) SelectAt(i int) error {
	if i < 0 || i >= len(s.results) {
		return ErrUnknownResult
	}

	s.selected = s.results[i].ID

	return nil
}

// Selected returns the selected track id
func (s *SearchSelector) Selected() (string, bool) {
	return s.selected, s.selected != ""
}

// Results returns the displayed results
func (s *SearchSelector) Results() []backend.SearchResultItem {
	return append([]backend.SearchResultItem(nil), s.results...)
}

// Text returns the current query text
func (s *SearchSelector) Text() string {
	return s.text
}
