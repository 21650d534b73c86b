// Package assistant turns transcripts into log entries and answers questions
// about the recorded data through a completion service.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/openai"
)

const (
	structureTemperature = 0.1
	structureMaxTokens   = 800
)

// ErrBusy is returned when a run is started while another is in flight.
var ErrBusy = errors.New("voice pipeline is busy")

// Transcriber converts an audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Completer returns a text completion for a message list.
type Completer interface {
	Complete(ctx context.Context, req openai.CompletionRequest) (string, error)
}

// State is the pipeline's progress.
type State int

const (
	StateIdle State = iota
	StateTranscribing
	StateStructuring
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTranscribing:
		return "transcribing"
	case StateStructuring:
		return "structuring"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configures the assistant services. Zero values select defaults.
type Options struct {
	// Model overrides the completer's default model.
	Model string
	// BabyID is stamped on entries produced by the pipeline.
	BabyID   uuid.UUID
	Location *time.Location
	Now      func() time.Time
	Logger   *log.Logger
	// OnStateChange is called after every pipeline transition.
	OnStateChange func(State)
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	return o
}

// Result is the outcome of a successful run.
type Result struct {
	Transcript string
	Entry      model.LogEntry
}

// Pipeline runs audio → transcript → completion → LogEntry. It never
// persists the entry; saving is the caller's job.
type Pipeline struct {
	transcriber Transcriber
	completer   Completer
	opts        Options

	mu    sync.Mutex
	state State
	busy  bool
}

// NewPipeline returns an idle pipeline. transcriber may be nil when only
// ProcessTranscript is used.
func NewPipeline(transcriber Transcriber, completer Completer, opts Options) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		completer:   completer,
		opts:        opts.withDefaults(),
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Process transcribes the audio file at audioPath and structures the
// transcript into an entry.
func (p *Pipeline) Process(ctx context.Context, audioPath string) (Result, error) {
	if err := p.begin(StateTranscribing); err != nil {
		return Result{}, err
	}
	if p.transcriber == nil {
		return Result{}, p.fail(ctx, fmt.Errorf("%w: no transcriber configured", openai.ErrTranscription))
	}

	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		if !errors.Is(err, openai.ErrTranscription) && !errors.Is(err, openai.ErrNoCredential) {
			err = fmt.Errorf("%w: %w", openai.ErrTranscription, err)
		}
		return Result{}, p.fail(ctx, err)
	}
	if transcript == "" {
		return Result{}, p.fail(ctx, fmt.Errorf("%w: empty transcript", openai.ErrTranscription))
	}
	p.opts.Logger.Printf("assistant: transcript %q", transcript)

	p.transition(StateStructuring)
	return p.structure(ctx, transcript)
}

// ProcessTranscript structures typed text, starting directly at the
// structuring step.
func (p *Pipeline) ProcessTranscript(ctx context.Context, transcript string) (Result, error) {
	if err := p.begin(StateStructuring); err != nil {
		return Result{}, err
	}
	if transcript == "" {
		return Result{}, p.fail(ctx, fmt.Errorf("%w: empty text", ErrInvalidStructure))
	}
	return p.structure(ctx, transcript)
}

func (p *Pipeline) structure(ctx context.Context, transcript string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, p.fail(ctx, err)
	}
	now := p.opts.Now()
	prompt, err := StructurePrompt(transcript, now)
	if err != nil {
		return Result{}, p.fail(ctx, err)
	}
	text, err := p.completer.Complete(ctx, openai.CompletionRequest{
		Model:       p.opts.Model,
		Messages:    []openai.Message{{Role: "user", Content: prompt}},
		Temperature: structureTemperature,
		MaxTokens:   structureMaxTokens,
	})
	if err != nil {
		return Result{}, p.fail(ctx, err)
	}
	entry, err := ParseStructured(text, p.opts.BabyID, now, p.opts.Location)
	if err != nil {
		p.opts.Logger.Printf("assistant: unparseable completion %q", text)
		return Result{}, p.fail(ctx, err)
	}

	p.finish(StateDone)
	return Result{Transcript: transcript, Entry: entry}, nil
}

// begin claims the pipeline and enters start.
func (p *Pipeline) begin(start State) error {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return ErrBusy
	}
	p.busy = true
	p.state = start
	p.mu.Unlock()
	p.notify(start)
	return nil
}

func (p *Pipeline) transition(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.notify(s)
}

// finish releases the pipeline in a terminal state.
func (p *Pipeline) finish(s State) {
	p.mu.Lock()
	p.state = s
	p.busy = false
	p.mu.Unlock()
	p.notify(s)
}

// fail ends the run in StateFailed. A cancelled context is reported even
// when the collaborator returned a different error.
func (p *Pipeline) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w (%w)", ctxErr, err)
	}
	p.opts.Logger.Printf("assistant: voice pipeline failed: %v", err)
	p.finish(StateFailed)
	return err
}

func (p *Pipeline) notify(s State) {
	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(s)
	}
}
