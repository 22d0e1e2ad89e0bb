package dialog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/parley/event"
)

type fakeAdder struct {
	sync.Mutex
	added map[string][]string
}

func (a *fakeAdder) AddParticipants(ctx context.Context, channelID string, ids []string) error {
	a.Lock()
	if a.added == nil {
		a.added = make(map[string][]string)
	}
	a.added[channelID] = append(a.added[channelID], ids...)
	a.Unlock()
	return nil
}

func newTestSteps(t *testing.T, n int, out chan *event.Reply) *Steps {
	t.Helper()
	steps := make([]*Step, 0, n)
	labels := []string{"intro", "details", "wrapup", "extra", "more"}
	for i := 0; i < n; i++ {
		steps = append(steps, &Step{
			Label:   labels[i%len(labels)],
			Message: "phase " + labels[i%len(labels)],
		})
	}
	st, err := NewSteps("room1", steps, out)
	if err != nil {
		t.Fatal(err)
	}
	st.Tick = 2 * time.Millisecond
	return st
}

func TestStepsProgression(t *testing.T) {
	out := make(chan *event.Reply, 64)
	st := newTestSteps(t, 3, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st.Start(ctx)

	waitFor(t, "the first step", func() bool {
		at, _ := st.Current()
		return at == "completed"
	})
	if cur := st.CurrentStep(); cur == nil || cur.Label != "intro" {
		t.Fatalf("current %v", cur)
	}

	// N-1 advances from the first triggered step reach the last
	// step.
	for i := 0; i < 2; i++ {
		if err := st.Advance(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if cur := st.CurrentStep(); cur == nil || cur.Label != "wrapup" {
		t.Fatalf("current %v", cur)
	}

	// Every subsequent advance leaves the current step unchanged.
	for i := 0; i < 3; i++ {
		if err := st.Advance(ctx); err != nil {
			t.Fatal(err)
		}
		if cur := st.CurrentStep(); cur == nil || cur.Label != "wrapup" {
			t.Fatalf("current %v after extra advance", cur)
		}
	}

	if _, _, finished := st.Index(); !finished {
		t.Fatal("should be finished")
	}
}

func TestStepsNotStarted(t *testing.T) {
	out := make(chan *event.Reply, 8)
	st := newTestSteps(t, 2, out)

	if cur := st.CurrentStep(); cur != nil {
		t.Fatalf("current %v before start", cur)
	}
	if i, started, finished := st.Index(); i != notStarted || started || finished {
		t.Fatalf("index %d %v %v", i, started, finished)
	}
}

func TestStepsPosts(t *testing.T) {
	out := make(chan *event.Reply, 64)

	steps := []*Step{
		{
			Label:         "kickoff",
			Message:       "welcome aboard",
			RichContent:   "<b>welcome</b>",
			AttachmentRef: "agenda.pdf",
			Participants:  []string{"p1", "p2"},
		},
	}
	st, err := NewSteps("room9", steps, out)
	if err != nil {
		t.Fatal(err)
	}
	st.Tick = 2 * time.Millisecond

	adder := &fakeAdder{}
	st.Adder = adder

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st.Start(ctx)
	waitFor(t, "the step post", func() bool {
		return len(out) > 0
	})

	r := <-out
	if r.ChannelID != "room9" {
		t.Fatalf("channel %q", r.ChannelID)
	}
	if r.Text != "kickoff: welcome aboard" {
		t.Fatalf("text %q", r.Text)
	}
	if r.RichContent != "<b>welcome</b>" || r.AttachmentRef != "agenda.pdf" {
		t.Fatalf("content %q attachment %q", r.RichContent, r.AttachmentRef)
	}

	waitFor(t, "participants", func() bool {
		adder.Lock()
		n := len(adder.added["room9"])
		adder.Unlock()
		return n == 2
	})
}

func TestStepsNestedMachine(t *testing.T) {
	out := make(chan *event.Reply, 64)

	in, err := NewInput(&InputConf{
		Question:    "Name?",
		ChannelID:   "room1",
		RetryDelay:  time.Second,
		CancelDelay: 5 * time.Second,
	}, out)
	if err != nil {
		t.Fatal(err)
	}
	in.Tick = 2 * time.Millisecond

	steps := []*Step{
		{Label: "ask", Machine: in},
		{Label: "done"},
	}
	st, err := NewSteps("room1", steps, out)
	if err != nil {
		t.Fatal(err)
	}
	st.Tick = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st.Start(ctx)

	// The step restarts its nested machine, which asks and waits;
	// the step can't complete until the capture ends.
	waitFor(t, "the nested question", func() bool {
		at, _ := in.Current()
		return at == "waiting"
	})
	if at, _ := st.Current(); at != "running" {
		t.Fatalf("steps at %s", at)
	}

	in.In <- "Pat"

	waitFor(t, "step completion", func() bool {
		at, _ := st.Current()
		return at == "completed"
	})

	if err := st.Advance(ctx); err != nil {
		t.Fatal(err)
	}
	if cur := st.CurrentStep(); cur == nil || cur.Label != "done" {
		t.Fatalf("current %v", cur)
	}
}
