// ABOUTME: Optional page-visibility hook that disconnects when hidden and reconnects when visible
// ABOUTME: Degrades to an "unsupported" result when the host has no visibility signal

package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrVisibilityUnsupported is returned by a VisibilitySignal whose host cannot
// report visibility.
var ErrVisibilityUnsupported = errors.New("visibility signal unsupported")

// VisibilitySignal is supplied by the host environment. Watch calls onHidden
// and onVisible as visibility changes and returns a function that stops
// watching.
type VisibilitySignal interface {
	Watch(onHidden, onVisible func()) (unregister func(), err error)
}

// AttachVisibilityMonitor disconnects when signal reports hidden and connects
// again when it reports visible. It returns an unregister function and
// whether monitoring is active; with a nil or unsupported signal it returns
// a no-op and false.
func (c *Connection) AttachVisibilityMonitor(signal VisibilitySignal) (func(), bool) {
	noop := func() {}
	if signal == nil {
		c.logger.Debug("no visibility signal available")
		return noop, false
	}

	unregister, err := signal.Watch(c.onHidden, c.onVisible)
	if err != nil {
		if !errors.Is(err, ErrVisibilityUnsupported) {
			c.logger.Warn("attaching visibility monitor failed", "error", err)
		}
		return noop, false
	}
	if unregister == nil {
		unregister = noop
	}

	var once sync.Once
	return func() { once.Do(unregister) }, true
}

func (c *Connection) onHidden() {
	c.logger.Debug("hidden, releasing event stream")
	c.Disconnect()
}

func (c *Connection) onVisible() {
	c.logger.Debug("visible, reopening event stream")
	go func() {
		if err := c.Connect(context.Background()); err != nil && !errors.Is(err, ErrDisconnected) {
			c.logger.Warn("reconnect after visibility change failed", "error", err)
		}
	}()
}
