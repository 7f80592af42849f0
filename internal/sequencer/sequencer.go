// Package sequencer drives step-trigger events at audio-clock accuracy
// from a coarse periodic timer, using lookahead scheduling: each wake it
// pre-schedules every step falling inside a short window ahead of "now"
// and hands the absolute times to the audio backend, which renders them
// jitter-free.
package sequencer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/domain"
)

const (
	DefaultBPM        = 128
	DefaultResolution = 16

	MinBPM = 20
	MaxBPM = 300

	// DefaultPollInterval must stay short relative to the step interval at
	// MaxBPM (at 300 BPM a sixteenth is 50ms).
	DefaultPollInterval = 25 * time.Millisecond
	DefaultLookahead    = 100 * time.Millisecond
)

type Options struct {
	BPM          float64
	Resolution   int
	PollInterval time.Duration
	Lookahead    time.Duration
	MinBPM       float64
	MaxBPM       float64
}

func (o *Options) withDefaults() {
	if o.BPM == 0 {
		o.BPM = DefaultBPM
	}
	if o.Resolution == 0 {
		o.Resolution = DefaultResolution
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Lookahead == 0 {
		o.Lookahead = DefaultLookahead
	}
	if o.MinBPM == 0 {
		o.MinBPM = MinBPM
	}
	if o.MaxBPM == 0 {
		o.MaxBPM = MaxBPM
	}
}

// Status is a point-in-time view of the transport.
type Status struct {
	BPM          float64
	Resolution   int
	CurrentStep  int
	NextStepTime time.Duration
	Playing      bool
}

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdStop
	cmdSetTempo
	cmdSetResolution
	cmdStatus
)

type command struct {
	kind       cmdKind
	bpm        float64
	resolution int
	reply      chan cmdResult
}

type cmdResult struct {
	status Status
	err    error
}

// Sequencer owns all clock state exclusively on its Run goroutine; the
// public methods talk to it over a channel, so the hot scheduling path
// needs no locks.
type Sequencer struct {
	clock  Clock
	sink   TriggerSink
	source Source
	opts   Options

	cmds chan command

	// Loop-owned; only Run (and in-package tests) touch these.
	bpm          float64
	resolution   int
	currentStep  int
	nextStepTime time.Duration
	playing      bool
}

func New(clock Clock, sink TriggerSink, source Source, opts Options) *Sequencer {
	opts.withDefaults()
	s := &Sequencer{
		clock:  clock,
		sink:   sink,
		source: source,
		opts:   opts,
		cmds:   make(chan command),
	}
	s.bpm = clampBPM(opts.BPM, opts.MinBPM, opts.MaxBPM)
	s.resolution = opts.Resolution
	return s
}

// Run owns the scheduling loop until ctx is canceled. Start/Stop/SetTempo
// and Status require Run to be active.
func (s *Sequencer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	log.Debug().Str("module", "sequencer").Dur("poll", s.opts.PollInterval).
		Dur("lookahead", s.opts.Lookahead).Msg("scheduling loop started")

	for {
		select {
		case <-ctx.Done():
			if s.playing {
				s.applyStop()
			}
			return
		case c := <-s.cmds:
			err := s.apply(c)
			if c.reply != nil {
				c.reply <- cmdResult{status: s.status(), err: err}
			}
		case <-ticker.C:
			if s.playing {
				s.schedule()
			}
		}
	}
}

func (s *Sequencer) apply(c command) error {
	switch c.kind {
	case cmdStart:
		s.applyStart()
	case cmdStop:
		s.applyStop()
	case cmdSetTempo:
		s.applySetTempo(c.bpm)
	case cmdSetResolution:
		return s.applySetResolution(c.resolution)
	case cmdStatus:
	}
	return nil
}

func (s *Sequencer) applyStart() {
	if s.playing {
		return
	}
	s.playing = true
	s.currentStep = 0
	s.nextStepTime = s.clock.Now()
	// First window fills immediately; the ticker takes over from here.
	s.schedule()
}

// applyStop flips the transport and cancels everything scheduled but not
// yet rendered in the same step: merely ceasing to schedule would let
// queued events still sound after stop was acknowledged.
func (s *Sequencer) applyStop() {
	s.playing = false
	s.currentStep = 0
	s.sink.CancelPending()
}

func (s *Sequencer) applySetTempo(bpm float64) {
	s.bpm = clampBPM(bpm, s.opts.MinBPM, s.opts.MaxBPM)
	// Takes effect on the next computed step interval; already-scheduled
	// events keep their times.
}

// applySetResolution changes step count per bar. Resolution is fixed per
// pattern, so the switch is rejected while any active row has a different
// length; switch patterns first, then the resolution.
func (s *Sequencer) applySetResolution(resolution int) error {
	if !domain.ValidResolution(resolution) {
		return domain.ErrInvalidResolution
	}
	for _, row := range s.source.Grid() {
		if len(row.Steps) != resolution {
			return domain.ErrStepCountMismatch
		}
	}
	s.resolution = resolution
	s.currentStep %= resolution
	return nil
}

// schedule runs one lookahead pass: every step whose time falls before
// now+lookahead is handed to the sink at its absolute time.
func (s *Sequencer) schedule() {
	grid := s.source.Grid()
	interval := s.stepInterval()
	horizon := s.clock.Now() + s.opts.Lookahead
	for s.nextStepTime < horizon {
		for _, row := range grid {
			if s.currentStep >= len(row.Steps) {
				continue
			}
			if v := row.Steps[s.currentStep]; v > 0 {
				s.sink.ScheduleTrigger(Trigger{
					Track:    row.Track,
					Step:     s.currentStep,
					Velocity: v,
					At:       s.nextStepTime,
				})
			}
		}
		s.nextStepTime += interval
		s.currentStep = (s.currentStep + 1) % s.resolution
	}
}

// stepInterval is 60/bpm/subdivisionsPerBeat, where the subdivision count
// follows the resolution (16 steps over 4 beats -> 4 sixteenths per beat).
func (s *Sequencer) stepInterval() time.Duration {
	perBeat := float64(s.resolution) / 4
	return time.Duration(float64(time.Minute) / s.bpm / perBeat)
}

func (s *Sequencer) status() Status {
	return Status{
		BPM:          s.bpm,
		Resolution:   s.resolution,
		CurrentStep:  s.currentStep,
		NextStepTime: s.nextStepTime,
		Playing:      s.playing,
	}
}

// Start begins playback from step 0 at the clock's current time.
func (s *Sequencer) Start() Status { return s.roundTrip(command{kind: cmdStart}) }

// Stop halts playback and cancels pending triggers atomically with the
// transport flip; it returns only after both have happened.
func (s *Sequencer) Stop() Status { return s.roundTrip(command{kind: cmdStop}) }

// SetTempo clamps out-of-range values rather than rejecting them.
func (s *Sequencer) SetTempo(bpm float64) Status {
	return s.roundTrip(command{kind: cmdSetTempo, bpm: bpm})
}

// SetResolution switches the step count per bar; it fails if the current
// grid's rows are not already that length.
func (s *Sequencer) SetResolution(resolution int) (Status, error) {
	c := command{kind: cmdSetResolution, resolution: resolution, reply: make(chan cmdResult, 1)}
	s.cmds <- c
	r := <-c.reply
	return r.status, r.err
}

func (s *Sequencer) Status() Status { return s.roundTrip(command{kind: cmdStatus}) }

func (s *Sequencer) roundTrip(c command) Status {
	c.reply = make(chan cmdResult, 1)
	s.cmds <- c
	return (<-c.reply).status
}

func clampBPM(bpm, min, max float64) float64 {
	if bpm < min {
		return min
	}
	if bpm > max {
		return max
	}
	return bpm
}
