package framelog

import (
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation bounds the diagnostic log on disk.
type Rotation struct {
	// MaxSizeMB rotates the file when it exceeds this size.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `json:"max_backups" yaml:"max_backups"`
	// MaxAgeDays removes rotated files older than this.
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`
	// Compress gzips rotated files.
	Compress bool `json:"compress" yaml:"compress"`
}

// DefaultRotation keeps roughly half a gigabyte of frame history.
func DefaultRotation() Rotation {
	return Rotation{MaxSizeMB: 64, MaxBackups: 8, MaxAgeDays: 7, Compress: true}
}

// Logger appends CBOR frame events to a size-rotated file. It is safe for
// concurrent use. A nil *Logger discards every call, so callers hold one
// unconditionally and leave it nil when frame logging is disabled.
type Logger struct {
	mu     sync.Mutex
	sink   *lumberjack.Logger
	closed bool
}

// New creates a Logger writing to path. The file is created lazily on the
// first event.
func New(path string, r Rotation) *Logger {
	return &Logger{
		sink: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    r.MaxSizeMB,
			MaxBackups: r.MaxBackups,
			MaxAge:     r.MaxAgeDays,
			Compress:   r.Compress,
		},
	}
}

// Log appends one event. Encoding or write failures are dropped; diagnostics
// must not disturb the pipeline.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	buf, err := EncodeEvent(event)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	// One Write per event keeps events atomic across rotation.
	_, _ = l.sink.Write(buf)
}

// LogRx records a frame received from the bus. decodeErr, when non-nil, is
// stored alongside the raw bytes.
func (l *Logger) LogRx(frameID uint32, data []byte, decodeErr error) {
	if l == nil {
		return
	}
	e := Event{Timestamp: time.Now().UTC(), Direction: DirectionRx, FrameID: frameID, Data: data}
	if decodeErr != nil {
		e.Error = decodeErr.Error()
	}
	l.Log(e)
}

// LogTx records a frame transmitted onto the bus.
func (l *Logger) LogTx(frameID uint32, data []byte) {
	if l == nil {
		return
	}
	l.Log(Event{Timestamp: time.Now().UTC(), Direction: DirectionTx, FrameID: frameID, Data: data})
}

// Close flushes and closes the underlying file. Safe to call multiple times;
// events logged after Close are discarded. A nil *Logger closes cleanly.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.sink.Close()
}
