//go:build unix

// ABOUTME: Visibility signal driven by SIGUSR1 (hidden) and SIGUSR2 (visible)
// ABOUTME: Lets a supervisor pause and resume the event stream of a running client

package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/2389/coven-chat/internal/stream"
)

type signalVisibility struct{}

func newSignalVisibility() stream.VisibilitySignal {
	return signalVisibility{}
}

func (signalVisibility) Watch(onHidden, onVisible func()) (func(), error) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				if sig == syscall.SIGUSR1 {
					onHidden()
				} else {
					onVisible()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
		})
	}, nil
}
