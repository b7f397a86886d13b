// Package receiver polls a transport handle and folds decoded frames into the
// protocol table's received view.
//
// One Receiver owns one poll goroutine. Decode failures are logged and
// counted, never fatal: unknown identifiers are ordinary bus traffic, and a
// malformed payload must not take the telemetry path down with it.
package receiver

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/canlink/errors"
	"github.com/c360/canlink/framelog"
	"github.com/c360/canlink/metric"
	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/transport"
)

// receiveRetryDelay paces the poll loop after a receive error so a broken
// handle cannot spin the CPU.
const receiveRetryDelay = 5 * time.Millisecond

type state int

const (
	stateCreated state = iota
	stateInitialized
	stateStarted
	stateStopped
)

// Receiver polls the bus and updates the table's accumulated received Detail.
// The zero value is usable; call Init before Start. Stop is terminal: a
// stopped Receiver cannot be restarted.
type Receiver struct {
	mu     sync.Mutex
	state  state
	handle transport.Handle
	table  *protocol.Table
	flog   *framelog.Logger

	logger  *slog.Logger
	metrics *metric.Pipeline

	cancel context.CancelFunc
	wg     sync.WaitGroup

	framesReceived atomic.Int64
	decodeErrors   atomic.Int64
	lastFrame      atomic.Value // time.Time
}

// Option configures a Receiver during Init.
type Option func(*Receiver)

// WithLogger sets the structured logger. Nil selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Receiver) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics pipeline. Nil disables recording.
func WithMetrics(p *metric.Pipeline) Option {
	return func(r *Receiver) {
		r.metrics = p
	}
}

// Init binds the receiver to its transport handle and protocol table.
// diagnostic may be nil to disable raw frame logging.
func (r *Receiver) Init(handle transport.Handle, table *protocol.Table, diagnostic *framelog.Logger, opts ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case stateInitialized, stateStarted:
		return errors.WrapInit(errors.ErrAlreadyStarted, "receiver", "Init", "check lifecycle state")
	case stateStopped:
		return errors.WrapInit(errors.ErrClosed, "receiver", "Init", "check lifecycle state")
	}
	if handle == nil {
		return errors.WrapInit(stderrors.New("nil transport handle"), "receiver", "Init", "validate transport handle")
	}
	if table == nil {
		return errors.WrapInit(stderrors.New("nil protocol table"), "receiver", "Init", "validate protocol table")
	}

	r.handle = handle
	r.table = table
	r.flog = diagnostic
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "receiver", "channel", handle.Name())
	r.lastFrame.Store(time.Time{})
	r.state = stateInitialized
	return nil
}

// Start spawns the poll goroutine. The transport handle must already be
// started; polling against a dead handle logs and retries until Stop.
func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case stateCreated:
		return errors.WrapStart(errors.ErrNotInitialized, "receiver", "Start", "check lifecycle state")
	case stateStarted:
		return errors.WrapStart(errors.ErrAlreadyStarted, "receiver", "Start", "check lifecycle state")
	case stateStopped:
		return errors.WrapStart(errors.ErrClosed, "receiver", "Start", "check lifecycle state")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.state = stateStarted
	r.wg.Add(1)
	go r.poll(ctx)

	r.logger.Info("receiver started")
	return nil
}

// Stop cancels the poll goroutine and waits for it to exit. Idempotent; a
// never-started receiver stops cleanly.
func (r *Receiver) Stop() error {
	r.mu.Lock()
	if r.state == stateStopped {
		r.mu.Unlock()
		return nil
	}
	wasStarted := r.state == stateStarted
	r.state = stateStopped
	cancel := r.cancel
	r.mu.Unlock()

	if wasStarted {
		cancel()
		r.wg.Wait()
		r.logger.Info("receiver stopped",
			"frames_received", r.framesReceived.Load(),
			"decode_errors", r.decodeErrors.Load())
	}
	return nil
}

// Stats is a point-in-time view of the receiver's counters, fed into the
// daemon's health reporting.
type Stats struct {
	FramesReceived int64
	DecodeErrors   int64
	LastFrame      time.Time
}

// Stats returns the current counters. Safe to call in any state.
func (r *Receiver) Stats() Stats {
	last, _ := r.lastFrame.Load().(time.Time)
	return Stats{
		FramesReceived: r.framesReceived.Load(),
		DecodeErrors:   r.decodeErrors.Load(),
		LastFrame:      last,
	}
}

func (r *Receiver) poll(ctx context.Context) {
	defer r.wg.Done()
	channel := r.handle.Name()

	for {
		frame, err := r.handle.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if stderrors.Is(err, transport.ErrClosed) || stderrors.Is(err, transport.ErrNotStarted) {
				// The handle is gone. The orchestrator stops us during
				// shutdown; until then keep retrying so a transport
				// restart resumes the flow.
				r.logger.Warn("transport unavailable", "error", err)
			} else {
				r.logger.Warn("receive failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveRetryDelay):
			}
			continue
		}

		r.framesReceived.Add(1)
		r.lastFrame.Store(time.Now())
		r.metrics.RecordFrameReceived(channel)

		payload := frame.Payload()
		decodeErr := r.table.Decode(frame.ID, payload)
		r.flog.LogRx(frame.ID, payload, decodeErr)
		if decodeErr != nil {
			r.decodeErrors.Add(1)
			r.metrics.RecordDecodeError(channel)
			if stderrors.Is(decodeErr, protocol.ErrUnknownMessage) {
				// Other nodes' traffic on a shared bus; expected.
				r.logger.Debug("unknown frame", "frame", frame.String())
			} else {
				r.logger.Warn("decode failed", "frame", frame.String(), "error", decodeErr)
			}
		}
	}
}
