package transport

import (
	"context"
	"sync"
)

// TypeVirtual is the registry name of the in-memory transport.
const TypeVirtual = "virtual"

func init() {
	Register(TypeVirtual, func(cfg Config) (Handle, error) {
		return VirtualHub(cfg.Channel).Open(), nil
	})
}

const virtualQueueLen = 256

var (
	hubsMu sync.Mutex
	hubs   = make(map[string]*Hub)
)

// VirtualHub returns the process-wide hub for the named virtual channel,
// creating it on first use. Handles opened on the same channel exchange
// frames; tests open a second handle to simulate the far side of the bus.
func VirtualHub(channel string) *Hub {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	h, ok := hubs[channel]
	if !ok {
		h = &Hub{channel: channel, ports: make(map[*VirtualHandle]struct{})}
		hubs[channel] = h
	}
	return h
}

// Hub is an in-memory CAN segment. Every started handle sees every frame
// sent by any other handle on the hub.
type Hub struct {
	channel string
	mu      sync.RWMutex
	ports   map[*VirtualHandle]struct{}
}

// Open creates an idle handle attached to the hub.
func (h *Hub) Open() *VirtualHandle {
	return &VirtualHandle{hub: h}
}

func (h *Hub) join(p *VirtualHandle) {
	h.mu.Lock()
	h.ports[p] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leave(p *VirtualHandle) {
	h.mu.Lock()
	delete(h.ports, p)
	h.mu.Unlock()
}

// broadcast delivers a frame to every started handle except the origin.
// Delivery never blocks: a handle that stops draining loses frames, the
// same way a controller overflows its receive queue.
func (h *Hub) broadcast(from *VirtualHandle, f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.ports {
		if p == from {
			continue
		}
		select {
		case p.rx <- f:
		default:
		}
	}
}

type vstate int

const (
	vIdle vstate = iota
	vStarted
	vStopped
)

// VirtualHandle is a Handle attached to an in-memory Hub.
type VirtualHandle struct {
	hub *Hub

	mu    sync.Mutex
	state vstate
	rx    chan Frame
	done  chan struct{}
}

// Name identifies the handle's hub channel.
func (v *VirtualHandle) Name() string {
	return TypeVirtual + ":" + v.hub.channel
}

// Start attaches the handle to its hub.
func (v *VirtualHandle) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch v.state {
	case vStarted:
		return ErrAlreadyStarted
	case vStopped:
		return ErrClosed
	}
	v.rx = make(chan Frame, virtualQueueLen)
	v.done = make(chan struct{})
	v.state = vStarted
	v.hub.join(v)
	return nil
}

// Stop detaches the handle. Idempotent; a never-started handle stops cleanly.
func (v *VirtualHandle) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == vStopped {
		return nil
	}
	if v.state == vStarted {
		v.hub.leave(v)
		close(v.done)
	}
	v.state = vStopped
	return nil
}

// Send broadcasts the frame to the hub's other handles.
func (v *VirtualHandle) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	state := v.state
	v.mu.Unlock()
	switch state {
	case vIdle:
		return ErrNotStarted
	case vStopped:
		return ErrClosed
	}
	v.hub.broadcast(v, f)
	return nil
}

// Receive waits for the next frame from the hub.
func (v *VirtualHandle) Receive(ctx context.Context) (Frame, error) {
	v.mu.Lock()
	state, rx, done := v.state, v.rx, v.done
	v.mu.Unlock()
	switch state {
	case vIdle:
		return Frame{}, ErrNotStarted
	case vStopped:
		return Frame{}, ErrClosed
	}
	select {
	case f := <-rx:
		return f, nil
	case <-done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}
