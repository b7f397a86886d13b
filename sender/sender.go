// Package sender owns the outbound half of the bus: a registry of send slots
// and the transmit loop that keeps periodic frames flowing.
//
// Slots carry their own pending payload bytes (see protocol.SendMessage); the
// sender never encodes anything itself. Commands mutate slot fields through
// the vehicle controller, then Update re-encodes and the loop picks the new
// bytes up on its next tick. Event-driven slots (period zero) are transmitted
// synchronously by Update instead.
package sender

import (
	"context"
	stderrors "errors"
	"fmt"
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

// basePeriod is the transmit loop tick. Slot periods are expected to be
// multiples of it; a slot becomes due on the first tick at or past its period.
const basePeriod = 10 * time.Millisecond

type state int

const (
	stateCreated state = iota
	stateInitialized
	stateStarted
	stateStopped
)

// slot tracks one registered send message. lastSent is owned by the transmit
// loop; nobody else reads or writes it.
type slot struct {
	msg      protocol.SendMessage
	period   time.Duration
	lastSent time.Time
}

// Sender transmits registered send slots onto the bus. The zero value is
// usable; call Init before anything else. Stop is terminal but keeps the
// registration set readable, so a drain can still be verified afterwards.
type Sender struct {
	mu     sync.Mutex
	state  state
	handle transport.Handle
	table  *protocol.Table
	flog   *framelog.Logger

	logger  *slog.Logger
	metrics *metric.Pipeline

	slotMu sync.RWMutex
	slots  map[uint32]*slot
	order  []uint32

	cancel context.CancelFunc
	wg     sync.WaitGroup

	framesSent atomic.Int64
	sendErrors atomic.Int64
}

// Option configures a Sender during Init.
type Option func(*Sender)

// WithLogger sets the structured logger. Nil selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sender) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics pipeline. Nil disables recording.
func WithMetrics(p *metric.Pipeline) Option {
	return func(s *Sender) {
		s.metrics = p
	}
}

// Init binds the sender to its transport handle and protocol table.
// diagnostic may be nil to disable raw frame logging.
func (s *Sender) Init(handle transport.Handle, table *protocol.Table, diagnostic *framelog.Logger, opts ...Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateInitialized, stateStarted:
		return errors.WrapInit(errors.ErrAlreadyStarted, "sender", "Init", "check lifecycle state")
	case stateStopped:
		return errors.WrapInit(errors.ErrClosed, "sender", "Init", "check lifecycle state")
	}
	if handle == nil {
		return errors.WrapInit(stderrors.New("nil transport handle"), "sender", "Init", "validate transport handle")
	}
	if table == nil {
		return errors.WrapInit(stderrors.New("nil protocol table"), "sender", "Init", "validate protocol table")
	}

	s.handle = handle
	s.table = table
	s.flog = diagnostic
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "sender", "channel", handle.Name())
	s.slots = make(map[uint32]*slot)
	s.state = stateInitialized
	return nil
}

// Register adds send slots to the active outbound set. Slots must belong to
// the table the sender was initialized with; registering an identifier twice
// is a no-op. Registration is allowed while the transmit loop runs.
func (s *Sender) Register(msgs ...protocol.SendMessage) error {
	s.mu.Lock()
	table := s.table
	s.mu.Unlock()
	if table == nil {
		return errors.WrapUpdate(errors.ErrNotInitialized, "sender", "Register", "check lifecycle state")
	}

	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	for _, m := range msgs {
		if m == nil {
			return errors.WrapUpdate(protocol.ErrNilMessage, "sender", "Register", "validate send message")
		}
		if _, ok := table.SendMessage(m.ID()); !ok {
			return errors.WrapUpdate(
				fmt.Errorf("message 0x%X is not in the protocol table", m.ID()),
				"sender", "Register", "validate send message")
		}
		if _, exists := s.slots[m.ID()]; exists {
			continue
		}
		s.slots[m.ID()] = &slot{msg: m, period: m.Period()}
		s.order = append(s.order, m.ID())
	}
	return nil
}

// ClearMessages empties the active outbound set. The transmit loop keeps
// ticking but sends nothing until the next Register.
func (s *Sender) ClearMessages() {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	s.slots = make(map[uint32]*slot)
	s.order = nil
}

// IsMessageClear reports whether no send slots are registered.
func (s *Sender) IsMessageClear() bool {
	s.slotMu.RLock()
	defer s.slotMu.RUnlock()
	return len(s.slots) == 0
}

// Update re-encodes every registered slot from its typed fields, then
// transmits event-driven slots immediately. Periodic slots keep their cadence
// and pick up the fresh bytes on the loop's next tick.
func (s *Sender) Update() error {
	s.mu.Lock()
	initialized := s.table != nil
	s.mu.Unlock()
	if !initialized {
		return errors.WrapUpdate(errors.ErrNotInitialized, "sender", "Update", "check lifecycle state")
	}

	var errs []error
	for _, sl := range s.snapshot() {
		sl.msg.Refresh()
		if sl.period == 0 {
			if err := s.transmit(sl.msg); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errors.WrapUpdate(stderrors.Join(errs...), "sender", "Update", "transmit event-driven slots")
	}
	return nil
}

// UpdateHeartbeat advances heartbeat slots only: alive counters and checksums
// re-encode, every other slot keeps its bytes.
func (s *Sender) UpdateHeartbeat() error {
	s.mu.Lock()
	initialized := s.table != nil
	s.mu.Unlock()
	if !initialized {
		return errors.WrapUpdate(errors.ErrNotInitialized, "sender", "UpdateHeartbeat", "check lifecycle state")
	}

	for _, sl := range s.snapshot() {
		if hb, ok := sl.msg.(protocol.HeartbeatMessage); ok {
			hb.RefreshHeartbeat()
		}
	}
	return nil
}

// Start spawns the transmit loop. The transport handle must already be
// started.
func (s *Sender) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateCreated:
		return errors.WrapStart(errors.ErrNotInitialized, "sender", "Start", "check lifecycle state")
	case stateStarted:
		return errors.WrapStart(errors.ErrAlreadyStarted, "sender", "Start", "check lifecycle state")
	case stateStopped:
		return errors.WrapStart(errors.ErrClosed, "sender", "Start", "check lifecycle state")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = stateStarted
	s.wg.Add(1)
	go s.transmitLoop(ctx)

	s.logger.Info("sender started", "base_period", basePeriod)
	return nil
}

// Stop halts the transmit loop and waits for it to exit. Idempotent.
// Registrations survive so IsMessageClear stays meaningful after shutdown;
// draining the outbound set is an explicit ClearMessages.
func (s *Sender) Stop() error {
	s.mu.Lock()
	if s.state == stateStopped {
		s.mu.Unlock()
		return nil
	}
	wasStarted := s.state == stateStarted
	s.state = stateStopped
	cancel := s.cancel
	s.mu.Unlock()

	if wasStarted {
		cancel()
		s.wg.Wait()
		s.logger.Info("sender stopped",
			"frames_sent", s.framesSent.Load(),
			"send_errors", s.sendErrors.Load())
	}
	return nil
}

// Stats is a point-in-time view of the sender's counters, fed into the
// daemon's health reporting.
type Stats struct {
	FramesSent int64
	SendErrors int64
	Registered int
}

// Stats returns the current counters. Safe to call in any state.
func (s *Sender) Stats() Stats {
	s.slotMu.RLock()
	registered := len(s.slots)
	s.slotMu.RUnlock()
	return Stats{
		FramesSent: s.framesSent.Load(),
		SendErrors: s.sendErrors.Load(),
		Registered: registered,
	}
}

// snapshot copies the slot list in registration order so callers iterate
// without holding slotMu across transmits.
func (s *Sender) snapshot() []*slot {
	s.slotMu.RLock()
	defer s.slotMu.RUnlock()
	out := make([]*slot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.slots[id])
	}
	return out
}

func (s *Sender) transmitLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(basePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, sl := range s.snapshot() {
				if sl.period == 0 {
					continue
				}
				if now.Sub(sl.lastSent) < sl.period {
					continue
				}
				sl.lastSent = now
				_ = s.transmit(sl.msg)
			}
		}
	}
}

// transmit sends one slot's pending payload. Failures are logged and counted;
// the loop keeps the remaining slots on schedule.
func (s *Sender) transmit(msg protocol.SendMessage) error {
	payload := msg.Payload()
	frame, err := transport.NewFrame(msg.ID(), payload)
	if err != nil {
		s.sendErrors.Add(1)
		s.metrics.RecordSendError(s.handle.Name())
		s.logger.Warn("frame build failed", "id", fmt.Sprintf("0x%X", msg.ID()), "error", err)
		return err
	}
	if err := s.handle.Send(frame); err != nil {
		s.sendErrors.Add(1)
		s.metrics.RecordSendError(s.handle.Name())
		s.logger.Warn("send failed", "frame", frame.String(), "error", err)
		return err
	}
	s.framesSent.Add(1)
	s.metrics.RecordFrameSent(s.handle.Name())
	s.flog.LogTx(frame.ID, payload)
	return nil
}
