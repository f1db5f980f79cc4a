// ABOUTME: Generic submission orchestrator shared by the remix and create modes
// ABOUTME: Single flight per mode, failure notices and unconditional loading cleanup

package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Mode names one of the two workflows
type Mode string

// Workflow modes
const (
	ModeRemix  Mode = "remix"
	ModeCreate Mode = "create"
)

// ModeSpec parameterizes an orchestrator for one mode
type ModeSpec[P any] struct {
	Mode  Mode
	Ready func() bool
	// Build snapshots the payload when the submission starts
	Build func() (P, error)
	// Call sends the payload and returns the artifact URL
	Call func(ctx context.Context, payload P) (string, error)
	// Notice is shown when the submission fails
	Notice string
}

// Job is one accepted submission
type Job[P any] struct {
	ID      uint64
	Payload P
}

// ArtifactState is what the mode shows about its artifact
type ArtifactState struct {
	AudioURL  string
	IsPlaying bool
	IsLoading bool
}

// Orchestrator runs submissions for one mode
type Orchestrator[P any] struct {
	spec   ModeSpec[P]
	player *ArtifactPlayer
	debugf func(string, ...interface{})

	loading  bool
	job      uint64
	audioURL string
	notice   string
}

// NewOrchestrator creates an orchestrator driving player
func NewOrchestrator[P any](spec ModeSpec[P], player *ArtifactPlayer, debugf func(string, ...interface{})) *Orchestrator[P] {
	if debugf == nil {
		debugf = func(string, ...interface{}) {}
	}

	return &Orchestrator[P]{spec: spec, player: player, debugf: debugf}
}

// Ready reports whether a submission would be accepted now
func (o *Orchestrator[P]) Ready() bool {
	return !o.loading && o.spec.Ready()
}

// Begin accepts a submission, marks the mode loading and snapshots the payload
func (o *Orchestrator[P]) Begin() (Job[P], error) {
	if o.loading {
		return Job[P]{}, ErrBusy
	}

	if !o.spec.Ready() {
		return Job[P]{}, ErrNotReady
	}

	payload, err := o.spec.Build()
	if err != nil {
		return Job[P]{}, fmt.Errorf("failed to build %s payload: %w", o.spec.Mode, err)
	}

	o.job++
	o.loading = true
	o.notice = ""

	o.debugf("[%s] submission %d started", o.spec.Mode, o.job)

	return Job[P]{ID: o.job, Payload: payload}, nil
}

// Run performs the backend call for job. It may run outside the event loop.
func (o *Orchestrator[P]) Run(ctx context.Context, job Job[P]) (url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s call panicked: %v\n%s", o.spec.Mode, r, debug.Stack())
		}
	}()

	return o.spec.Call(ctx, job.Payload)
}

// Resolve applies the backend outcome. On success it returns the ticket for the player load.
func (o *Orchestrator[P]) Resolve(jobID uint64, url string, err error) (LoadTicket, bool) {
	if !o.current(jobID) {
		return LoadTicket{}, false
	}

	if err != nil {
		o.debugf("[%s] submission %d failed: %v", o.spec.Mode, jobID, err)
		o.notice = o.spec.Notice
		o.loading = false

		return LoadTicket{}, false
	}

	o.audioURL = url

	return o.player.Begin(url), true
}

// Loaded applies the player load outcome and always ends the submission
func (o *Orchestrator[P]) Loaded(jobID uint64, ticket LoadTicket, err error) {
	if !o.current(jobID) {
		return
	}

	defer func() { o.loading = false }()

	if !o.player.Finish(ticket, err) {
		return
	}

	if err != nil {
		o.debugf("[%s] artifact load failed: %v", o.spec.Mode, err)
		o.notice = o.spec.Notice

		return
	}

	o.debugf("[%s] submission %d ready: %s", o.spec.Mode, jobID, ticket.URL)
}

// Submit runs a whole submission synchronously: begin, call, load
func (o *Orchestrator[P]) Submit(ctx context.Context) error {
	job, err := o.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if o.job == job.ID {
			o.loading = false
		}
	}()

	url, err := o.Run(ctx, job)

	ticket, ok := o.Resolve(job.ID, url, err)
	if !ok {
		return err
	}

	err = o.player.Load(ctx, ticket)
	o.Loaded(job.ID, ticket, err)

	return err
}

// State returns the artifact state of the mode
func (o *Orchestrator[P]) State() ArtifactState {
	return ArtifactState{
		AudioURL:  o.audioURL,
		IsPlaying: o.player.Playing(),
		IsLoading: o.loading,
	}
}

// Loading reports whether a submission is in flight
func (o *Orchestrator[P]) Loading() bool {
	return o.loading
}

// Notice returns the pending failure notice, empty when none
func (o *Orchestrator[P]) Notice() string {
	return o.notice
}

// DismissNotice clears the failure notice
func (o *Orchestrator[P]) DismissNotice() {
	o.notice = ""
}

// Player returns the mode's artifact player
func (o *Orchestrator[P]) Player() *ArtifactPlayer {
	return o.player
}

// Mode returns the mode name
func (o *Orchestrator[P]) Mode() Mode {
	return o.spec.Mode
}

func (o *Orchestrator[P]) current(jobID uint64) bool {
	if !o.loading || jobID != o.job {
		o.debugf("[%s] ignoring outcome of submission %d", o.spec.Mode, jobID)
		return false
	}

	return true
}
