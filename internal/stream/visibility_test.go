// ABOUTME: Tests for visibility-driven disconnect and reconnect
// ABOUTME: Covers hidden/visible transitions and graceful degradation without a signal

package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/events"
)

type fakeSignal struct {
	onHidden     func()
	onVisible    func()
	err          error
	unregistered int
}

func (s *fakeSignal) Watch(onHidden, onVisible func()) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.onHidden, s.onVisible = onHidden, onVisible
	return func() { s.unregistered++ }, nil
}

func TestAttachVisibilityMonitor_HiddenThenVisible(t *testing.T) {
	c, transport, r1 := connected(t, events.NewDispatcher(nil), nil)

	sig := &fakeSignal{}
	unregister, ok := c.AttachVisibilityMonitor(sig)
	require.True(t, ok)

	sig.onHidden()
	assert.Equal(t, StateIdle, c.State())
	require.Eventually(t, r1.isClosed, time.Second, 5*time.Millisecond)

	sig.onVisible()
	r2 := transport.next(t)
	r2.send(t, Frame{Event: EventAck})
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, transport.openCount())

	unregister()
	unregister()
	assert.Equal(t, 1, sig.unregistered)
}

func TestAttachVisibilityMonitor_Unsupported(t *testing.T) {
	c := New(newFakeTransport(), events.NewDispatcher(nil), nil)

	unregister, ok := c.AttachVisibilityMonitor(nil)
	assert.False(t, ok)
	assert.NotPanics(t, unregister)

	unregister, ok = c.AttachVisibilityMonitor(&fakeSignal{err: ErrVisibilityUnsupported})
	assert.False(t, ok)
	assert.NotPanics(t, unregister)

	_, ok = c.AttachVisibilityMonitor(&fakeSignal{err: errors.New("no document")})
	assert.False(t, ok)
}
