//go:build !unix

package main

import "github.com/2389/coven-chat/internal/stream"

type signalVisibility struct{}

func newSignalVisibility() stream.VisibilitySignal {
	return signalVisibility{}
}

func (signalVisibility) Watch(func(), func()) (func(), error) {
	return nil, stream.ErrVisibilityUnsupported
}
