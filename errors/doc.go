// Package errors provides standardized error handling patterns for canlink
// components.
//
// # Overview
//
// The errors package implements a lifecycle-stage classification system for
// the CAN link subsystem: Creation (collaborator construction), Init (ordered
// initialization), Start (ordered startup), Update (steady-state command
// application), and Stop (shutdown, logged only).
//
// Classification drives how callers react: creation, init, and start failures
// abort bring-up fail-fast; update failures are logged and the offending
// command dropped; stop failures are logged and never propagated.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if handle == nil {
//	    return errors.ErrTransportCreation
//	}
//
// Wrap errors with component context:
//
//	if err := receiver.Init(handle, table); err != nil {
//	    return errors.WrapInit(err, "orchestrator", "Init", "initialize receiver")
//	}
//
// Check classification at the call site:
//
//	if err := orch.Init(); err != nil {
//	    if errors.IsCreation(err) {
//	        // nothing was constructed; safe to retry with a new config
//	    }
//	}
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is, errors.As, and error wrapping chains.
package errors
