package pipeline

import (
	"testing"
	"time"

	"github.com/Comcast/parley/event"
)

func TestTimerFires(t *testing.T) {
	out := make(chan *event.Event, 8)
	ts := NewTimers(out)

	ev := event.New(event.GenericKind, map[string]interface{}{
		"channelId": "c1",
		"reminder":  "stand up",
	})
	if err := ts.Add("t1", ev, time.Millisecond); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-out:
		if got.StringAttr("reminder") != "stand up" {
			t.Fatalf("got %v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timer never fired")
	}

	waitFor(t, "the entry to clear", func() bool {
		return len(ts.Pending()) == 0
	})
}

func TestTimerCancel(t *testing.T) {
	out := make(chan *event.Event, 8)
	ts := NewTimers(out)

	ev := event.New(event.GenericKind, nil)
	if err := ts.Add("t1", ev, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := ts.Cancel("t1"); err != nil {
		t.Fatal(err)
	}
	if n := len(ts.Pending()); n != 0 {
		t.Fatalf("%d pending", n)
	}

	if err := ts.Cancel("t1"); err == nil {
		t.Fatal("cancelling a cancelled timer should fail")
	}

	time.Sleep(10 * time.Millisecond)
	if len(out) != 0 {
		t.Fatal("cancelled timer fired")
	}
}

func TestTimerReplace(t *testing.T) {
	out := make(chan *event.Event, 8)
	ts := NewTimers(out)

	slow := event.New(event.GenericKind, map[string]interface{}{"n": "slow"})
	fast := event.New(event.GenericKind, map[string]interface{}{"n": "fast"})

	if err := ts.Add("t1", slow, time.Hour); err != nil {
		t.Fatal(err)
	}
	// Same id: the old timer is cancelled.
	if err := ts.Add("t1", fast, time.Millisecond); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-out:
		if got.StringAttr("n") != "fast" {
			t.Fatalf("got %v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("replacement timer never fired")
	}
}

func TestTimerCron(t *testing.T) {
	out := make(chan *event.Event, 8)
	ts := NewTimers(out)

	if err := ts.AddCron("bad", event.New(event.GenericKind, nil), "nope"); err == nil {
		t.Fatal("bad schedule should fail")
	}

	// Every-second schedule: expect at least two firings, then
	// cancel.
	ev := event.New(event.GenericKind, map[string]interface{}{"tick": "tock"})
	if err := ts.AddCron("t1", ev, "* * * * * * *"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		select {
		case got := <-out:
			if got.StringAttr("tick") != "tock" {
				t.Fatalf("got %v", got)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("cron timer never fired")
		}
	}

	if err := ts.Cancel("t1"); err != nil {
		t.Fatal(err)
	}
}
