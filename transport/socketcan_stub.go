//go:build !linux

package transport

import (
	stderrors "errors"
)

func init() {
	Register(TypeSocketCAN, func(cfg Config) (Handle, error) {
		return nil, stderrors.New("transport: socketcan requires linux")
	})
}
