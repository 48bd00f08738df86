// Package subscribe implements the e-mail subscription form's request flow.
package subscribe

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/logging"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/otel"
)

// DefaultConfirmation is shown when the server confirms without a message.
const DefaultConfirmation = "Subscribed!"

// FailureMessage is shown for any network or decode failure.
const FailureMessage = "Something went wrong. Please try again."

var (
	// ErrDone is returned once the flow has succeeded.
	ErrDone = errors.New("subscribe: already subscribed")
	// ErrInFlight is returned while a request is outstanding.
	ErrInFlight = errors.New("subscribe: request in flight")
)

// Client is the subset of api.Client the flow needs.
type Client interface {
	Subscribe(ctx context.Context, email, line string) (model.SubscribeResponse, error)
}

// State is the form state.
type State int

const (
	Idle State = iota
	Validating
	Loading
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Validate performs the local syntactic check: the address must contain "@".
func Validate(email string) error {
	if !strings.Contains(email, "@") {
		return api.ValidationError("subscribe", "email must contain @")
	}
	return nil
}

// Flow is one mount of the subscription form for a line. Success is
// terminal; a new form needs a new Flow. Safe for concurrent use.
type Flow struct {
	client Client
	line   string
	events otel.Emitter

	mu      sync.Mutex
	state   State
	email   string
	message string
	err     error
}

// New creates an idle flow for line. events may be nil.
func New(client Client, line string, events otel.Emitter) *Flow {
	if events == nil {
		events = otel.NewNullLogger()
	}
	return &Flow{client: client, line: line, events: events}
}

// SetEmail edits the address. Editing after an error returns the form to
// Idle.
func (f *Flow) SetEmail(email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Success:
		return ErrDone
	case Loading:
		return ErrInFlight
	case Error:
		f.state = Idle
		f.err = nil
		f.message = ""
	}
	f.email = email
	return nil
}

// Submit validates the address and, if it passes, sends exactly one
// subscription request. It returns the confirmation text on success.
func (f *Flow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	switch f.state {
	case Success:
		f.mu.Unlock()
		return "", ErrDone
	case Loading:
		f.mu.Unlock()
		return "", ErrInFlight
	}

	f.state = Validating
	email, line := f.email, f.line
	if err := Validate(email); err != nil {
		f.state = Error
		f.err = err
		f.message = err.Error()
		f.mu.Unlock()
		return "", err
	}
	f.state = Loading
	f.mu.Unlock()

	resp, err := f.client.Subscribe(ctx, email, line)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Error
		f.err = err
		f.message = FailureMessage
		logging.Warn("Subscribe failed", "line", line, "kind", api.KindOf(err).String(), "error", err)
		f.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindSubscribe, Comp: "subscribe", Source: line, Err: err.Error()})
		return "", err
	}

	f.state = Success
	f.err = nil
	f.message = resp.Message
	if f.message == "" {
		f.message = DefaultConfirmation
	}
	f.events.Emit(otel.Event{Kind: otel.KindSubscribe, Comp: "subscribe", Source: line})
	logging.Info("Subscribed", "line", line)
	return f.message, nil
}

// State returns the form state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Line returns the line the form subscribes to.
func (f *Flow) Line() string { return f.line }

// Email returns the address as typed.
func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// Message returns the confirmation, validation or failure text for the
// current state.
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Err returns the error behind an Error state.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
