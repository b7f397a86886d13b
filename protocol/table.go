package protocol

import (
	"fmt"
	"sync"
)

// Table is the protocol message table for one vehicle: frame-ID → codec for
// reports, frame-ID → send slot for commands, plus the accumulated received
// Detail.
//
// Decode runs on the receiver's goroutine while ReceivedDetail is read from
// publishers, so the accumulated view sits behind a RWMutex. Everything else
// is wired once during setup and read-only afterwards.
type Table struct {
	newDetail func() Detail

	mu       sync.RWMutex
	recv     map[uint32]RecvMessage
	send     map[uint32]SendMessage
	sendIDs  []uint32
	received Detail
}

// NewTable creates an empty table. newDetail produces blank Detail instances
// for the accumulated received view and the derived to-send view.
func NewTable(newDetail func() Detail) (*Table, error) {
	if newDetail == nil {
		return nil, fmt.Errorf("protocol: NewTable: nil detail constructor")
	}
	d := newDetail()
	if d == nil {
		return nil, fmt.Errorf("protocol: NewTable: detail constructor returned nil")
	}
	return &Table{
		newDetail: newDetail,
		recv:      make(map[uint32]RecvMessage),
		send:      make(map[uint32]SendMessage),
		received:  d,
	}, nil
}

// AddRecvMessage registers the codec for one report frame.
func (t *Table) AddRecvMessage(m RecvMessage) error {
	if m == nil {
		return ErrNilMessage
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.recv[m.ID()]; exists {
		return fmt.Errorf("recv 0x%X: %w", m.ID(), ErrDuplicateMessage)
	}
	t.recv[m.ID()] = m
	return nil
}

// AddSendMessage registers the slot for one command frame. Registration
// order is preserved for SendMessages.
func (t *Table) AddSendMessage(m SendMessage) error {
	if m == nil {
		return ErrNilMessage
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.send[m.ID()]; exists {
		return fmt.Errorf("send 0x%X: %w", m.ID(), ErrDuplicateMessage)
	}
	t.send[m.ID()] = m
	t.sendIDs = append(t.sendIDs, m.ID())
	return nil
}

// Decode routes one received payload to its codec and folds the result into
// the accumulated received Detail. Unknown identifiers return
// ErrUnknownMessage; callers count them and keep polling.
func (t *Table) Decode(id uint32, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.recv[id]
	if !ok {
		return fmt.Errorf("0x%X: %w", id, ErrUnknownMessage)
	}
	return m.Decode(payload, t.received)
}

// ReceivedDetail returns an independent copy of the accumulated received
// view.
func (t *Table) ReceivedDetail() Detail {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.received.CloneDetail()
}

// SentDetail derives the pending to-send view by decoding each send slot's
// payload bytes through the slot's own decoder. Slots that cannot decode
// themselves, or whose pending bytes fail to decode, are skipped; the view
// is best-effort diagnostics, not control state.
func (t *Table) SentDetail() Detail {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d := t.newDetail()
	for _, id := range t.sendIDs {
		m := t.send[id]
		dec, ok := m.(PayloadDecoder)
		if !ok {
			continue
		}
		_ = dec.Decode(m.Payload(), d)
	}
	return d
}

// SendMessages returns the registered send slots in registration order.
func (t *Table) SendMessages() []SendMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]SendMessage, 0, len(t.sendIDs))
	for _, id := range t.sendIDs {
		out = append(out, t.send[id])
	}
	return out
}

// SendMessage returns the send slot for a frame identifier.
func (t *Table) SendMessage(id uint32) (SendMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.send[id]
	return m, ok
}

// HasRecvMessage reports whether the table decodes the given identifier.
func (t *Table) HasRecvMessage(id uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.recv[id]
	return ok
}
