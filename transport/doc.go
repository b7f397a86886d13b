// Package transport provides CAN bus access behind a small Handle interface.
//
// Implementations register themselves by name: "socketcan" binds a raw Linux
// CAN socket, "virtual" attaches to a process-local hub for tests and
// simulation. New dispatches on Config.Type, so callers select the bus purely
// through configuration.
package transport
