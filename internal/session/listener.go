package session

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/tracereplay/rspreplay/internal/cpu"
	"github.com/tracereplay/rspreplay/internal/trace"
)

// Serve accepts connections on ln one at a time, each getting its own fresh
// Session over trc/caps (spec §4.G: a new connection always starts replay
// from before the first event, with no breakpoints inherited from whoever
// connected before it). It returns when ctx is cancelled or the listener
// returns a permanent error. tracker may be nil; when set, it publishes the
// session currently being served for the status API's /debug/session route.
func Serve(ctx context.Context, ln net.Listener, caps cpu.Capability, trc trace.Trace, logger *slog.Logger, tracker *Tracker) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		sess := New(caps, trc)
		logger.Info("rsp: debugger connected",
			slog.String("session", sess.ID),
			slog.String("remote", raw.RemoteAddr().String()),
		)

		if tracker != nil {
			tracker.Set(sess)
		}

		conn := sess.Accept(raw, logger)
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				raw.Close()
			case <-done:
			}
		}()
		if err := conn.Serve(); err != nil {
			logger.Warn("rsp: session ended with error",
				slog.String("session", sess.ID),
				slog.Any("error", err),
			)
		}
		close(done)

		if tracker != nil {
			tracker.Clear()
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
