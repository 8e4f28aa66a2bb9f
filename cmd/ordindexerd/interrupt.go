package main

import (
	"os"
	"os/signal"
	"syscall"
)

// interruptListener returns a channel closed the first time SIGINT or
// SIGTERM arrives. The teacher's main.go files all call a
// signal.InterruptListener() from a "signal" package that was never
// part of this reference pack (only its call sites were), so this is
// a direct stdlib os/signal equivalent rather than a ported
// implementation.
func interruptListener() <-chan struct{} {
	c := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		close(c)
	}()

	return c
}
