package main

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"
)

type testPoller struct {
	events []tcell.Event
}

func (p *testPoller) PollEvent() tcell.Event {
	if len(p.events) == 0 {
		return tcell.NewEventInterrupt(nil)
	}

	ev := p.events[0]
	p.events = p.events[1:]
	return ev
}

func runPollEvents(p eventPoller, events chan tcell.Event, stop chan struct{}) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		pollEvents(p, events, stop)
	}()
	return done
}

func TestPollEvents(t *testing.T) {
	t.Run("events are forwarded", func(t *testing.T) {
		want := tcell.NewEventInterrupt("quit")
		events := make(chan tcell.Event)
		stop := make(chan struct{})

		done := runPollEvents(&testPoller{events: []tcell.Event{want}}, events, stop)

		select {
		case ev := <-events:
			require.Equal(t, want, ev)
		case <-time.After(time.Second):
			t.Fatal("no event forwarded")
		}

		close(stop)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("poller still running after stop")
		}
	})

	t.Run("stop unblocks a pending send", func(t *testing.T) {
		events := make(chan tcell.Event)
		stop := make(chan struct{})

		done := runPollEvents(&testPoller{}, events, stop)
		time.Sleep(time.Millisecond * 10)
		close(stop)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("poller blocked on a send nobody reads")
		}
	})

	t.Run("finalized screen", func(t *testing.T) {
		events := make(chan tcell.Event, 1)
		stop := make(chan struct{})
		defer close(stop)

		done := runPollEvents(&testPoller{events: []tcell.Event{nil}}, events, stop)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("poller still running after a nil event")
		}
		require.Empty(t, events)
	})
}
