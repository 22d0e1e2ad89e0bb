package shell

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/parley/bag"
	"github.com/Comcast/parley/event"
)

func newTestShell(t *testing.T) *Shell {
	t.Helper()
	sh := NewShell()
	if err := AddBuiltins(sh); err != nil {
		t.Fatal(err)
	}
	return sh
}

func newTestRequest(out chan *event.Reply) *Request {
	return &Request{
		ChannelID: "room1",
		Out:       out,
		Bag:       bag.NewBag(),
	}
}

func oneReply(t *testing.T, out chan *event.Reply) *event.Reply {
	t.Helper()
	select {
	case r := <-out:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
		return nil
	}
}

func TestResolve(t *testing.T) {
	sh := newTestShell(t)

	cmd, arg, have := sh.Resolve("echo hello there")
	if !have || cmd.Keyword != "echo" || arg != "hello there" {
		t.Fatalf("got %v %q %v", cmd, arg, have)
	}

	cmd, arg, have = sh.Resolve("   help   ")
	if !have || cmd.Keyword != "help" || arg != "" {
		t.Fatalf("got %v %q %v", cmd, arg, have)
	}
}

func TestResolveUnknownIgnored(t *testing.T) {
	sh := newTestShell(t)

	// No Default handler registered, so nonsense is ignored.
	if _, _, have := sh.Resolve("xyzzy plugh"); have {
		t.Fatal("should not resolve")
	}
	if _, _, have := sh.Resolve(""); have {
		t.Fatal("blank should not resolve")
	}

	// Exec on an unresolvable utterance is a quiet no-op.
	if err := sh.Exec(context.Background(), "xyzzy", newTestRequest(make(chan *event.Reply, 1))); err != nil {
		t.Fatal(err)
	}
}

func TestReservedHandlers(t *testing.T) {
	sh := newTestShell(t)

	var gotDefault, gotEmpty string
	if err := sh.Add(&Command{
		Keyword: Default,
		Hidden:  true,
		Run: func(ctx context.Context, req *Request) error {
			gotDefault = req.Arg
			return nil
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := sh.Add(&Command{
		Keyword: Empty,
		Hidden:  true,
		Run: func(ctx context.Context, req *Request) error {
			gotEmpty = "yes"
			return nil
		},
	}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	out := make(chan *event.Reply, 8)

	if err := sh.Exec(ctx, "xyzzy plugh", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if gotDefault != "xyzzy plugh" {
		t.Fatalf("default got %q", gotDefault)
	}

	if err := sh.Exec(ctx, "   ", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if gotEmpty != "yes" {
		t.Fatal("empty handler not invoked")
	}
}

func TestDuplicateCommand(t *testing.T) {
	sh := newTestShell(t)
	err := sh.Add(&Command{
		Keyword: "echo",
		Run: func(ctx context.Context, req *Request) error {
			return nil
		},
	})
	if _, is := err.(*DuplicateCommand); !is {
		t.Fatalf("got %v", err)
	}

	if err := sh.Add(&Command{Keyword: "norun"}); err != NilRun {
		t.Fatalf("got %v", err)
	}
}

func TestEcho(t *testing.T) {
	sh := newTestShell(t)
	out := make(chan *event.Reply, 8)

	if err := sh.Exec(context.Background(), "echo hello", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if r := oneReply(t, out); r.Text != "hello" || r.ChannelID != "room1" {
		t.Fatalf("got %q on %q", r.Text, r.ChannelID)
	}
}

func TestHelpSortedAndHidesHidden(t *testing.T) {
	sh := newTestShell(t)
	out := make(chan *event.Reply, 8)

	if err := sh.Exec(context.Background(), "help", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	r := oneReply(t, out)

	if strings.Contains(r.Text, "shutdown") {
		t.Fatal("help shows a hidden command")
	}

	var keywords []string
	for _, line := range strings.Split(r.Text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		keywords = append(keywords, fields[0])
	}
	if len(keywords) < 4 {
		t.Fatalf("help lines: %v", keywords)
	}
	for i := 1; i < len(keywords); i++ {
		if keywords[i] < keywords[i-1] {
			t.Fatalf("help not sorted: %v", keywords)
		}
	}
}

func TestHelpOneCommand(t *testing.T) {
	sh := newTestShell(t)
	out := make(chan *event.Reply, 8)

	if err := sh.Exec(context.Background(), "help echo", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if r := oneReply(t, out); !strings.HasPrefix(r.Text, "echo TEXT") {
		t.Fatalf("got %q", r.Text)
	}

	if err := sh.Exec(context.Background(), "help xyzzy", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if r := oneReply(t, out); r.Text != "Unknown command: xyzzy" {
		t.Fatalf("got %q", r.Text)
	}
}

func TestVersion(t *testing.T) {
	sh := newTestShell(t)
	out := make(chan *event.Reply, 8)

	if err := sh.Exec(context.Background(), "version", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if r := oneReply(t, out); r.Text != Version {
		t.Fatalf("got %q", r.Text)
	}
}

func TestShutdownFlipsBag(t *testing.T) {
	sh := newTestShell(t)
	out := make(chan *event.Reply, 8)
	req := newTestRequest(out)
	req.Bag.SwitchOn()

	if err := sh.Exec(context.Background(), "shutdown", req); err != nil {
		t.Fatal(err)
	}
	if req.Bag.Running() {
		t.Fatal("still running")
	}
}

func TestSleep(t *testing.T) {
	sh := newTestShell(t)
	out := make(chan *event.Reply, 8)

	cmd, _, have := sh.Resolve("sleep 1ms")
	if !have || !cmd.Interactive {
		t.Fatal("sleep should be an interactive command")
	}

	if err := sh.Exec(context.Background(), "sleep 1ms", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if r := oneReply(t, out); r.Text != "Done sleeping." {
		t.Fatalf("got %q", r.Text)
	}
}

func TestRemind(t *testing.T) {
	sh := newTestShell(t)
	out := make(chan *event.Reply, 8)

	// Every-minute schedule: the ack arrives now; the reminder
	// later (not awaited here).
	if err := sh.Exec(context.Background(), "remind * * * * * | stand up", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if r := oneReply(t, out); !strings.HasPrefix(r.Text, "Okay.") {
		t.Fatalf("got %q", r.Text)
	}

	if err := sh.Exec(context.Background(), "remind nope", newTestRequest(out)); err != nil {
		t.Fatal(err)
	}
	if r := oneReply(t, out); r.Text != BadRemind.Error() {
		t.Fatalf("got %q", r.Text)
	}
}
