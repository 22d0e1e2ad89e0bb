package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/Comcast/parley/event"
)

func TestSequenceRunsInOrder(t *testing.T) {
	out := make(chan *event.Reply, 64)

	newCapture := func(question string) *Input {
		in, err := NewInput(&InputConf{
			Question:    question,
			RetryDelay:  time.Second,
			CancelDelay: 5 * time.Second,
		}, out)
		if err != nil {
			t.Fatal(err)
		}
		in.Tick = 2 * time.Millisecond
		return in
	}

	first := newCapture("First?")
	second := newCapture("Second?")

	q := NewSequence(first, second)
	q.Poll = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- q.Run(ctx)
	}()

	waitFor(t, "the first question", func() bool {
		at, _ := first.Current()
		return at == "waiting"
	})

	// The second machine must not have started yet.
	if at, _ := second.Current(); at != "begin" {
		t.Fatalf("second at %s", at)
	}

	first.In <- "one"

	waitFor(t, "the second question", func() bool {
		at, _ := second.Current()
		return at == "waiting"
	})

	second.In <- "two"

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sequence never finished")
	}

	if a, _ := first.Answer(); a != "one" {
		t.Fatalf("first answer %q", a)
	}
	if a, _ := second.Answer(); a != "two" {
		t.Fatalf("second answer %q", a)
	}
}

func TestSequenceHonorsContext(t *testing.T) {
	out := make(chan *event.Reply, 8)

	in, err := NewInput(&InputConf{
		Question:    "Stuck?",
		RetryDelay:  time.Second,
		CancelDelay: time.Minute,
		Mandatory:   true,
	}, out)
	if err != nil {
		t.Fatal(err)
	}
	in.Tick = 2 * time.Millisecond

	q := NewSequence(in)
	q.Poll = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- q.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a context error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sequence ignored cancellation")
	}
}
