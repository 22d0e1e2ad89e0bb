package core

import (
	"context"
	"testing"
	"time"
)

func always(ctx context.Context, m *Machine, props StepProps) bool {
	return true
}

func never(ctx context.Context, m *Machine, props StepProps) bool {
	return false
}

func TestBuildAndCurrent(t *testing.T) {
	m, err := NewMachine(
		[]*State{{Name: "begin"}, {Name: "end"}},
		[]*Transition{{Source: "begin", Target: "end"}},
		"begin")
	if err != nil {
		t.Fatal(err)
	}

	at, err := m.Current()
	if err != nil {
		t.Fatal(err)
	}
	if at != "begin" {
		t.Fatalf("at %s", at)
	}
}

func TestBuildErrors(t *testing.T) {
	states := []*State{{Name: "a"}, {Name: "b"}}

	if _, err := NewMachine(states, nil, "nope"); err == nil {
		t.Fatal("expected an error for a bad initial state")
	}

	if _, err := NewMachine(states,
		[]*Transition{{Source: "nope", Target: "b"}}, "a"); err == nil {
		t.Fatal("expected an error for a dangling source")
	}

	if _, err := NewMachine(states,
		[]*Transition{{Source: "a", Target: "nope"}}, "a"); err == nil {
		t.Fatal("expected an error for a dangling target")
	}

	if _, err := NewMachine([]*State{{Name: "a"}, {Name: "a"}}, nil, "a"); err == nil {
		t.Fatal("expected an error for a duplicate state")
	}
}

func TestNotBuilt(t *testing.T) {
	var m Machine
	if _, err := m.Current(); err != NotBuilt {
		t.Fatalf("got %v", err)
	}
	if _, err := m.Step(context.Background(), nil); err != NotBuilt {
		t.Fatalf("got %v", err)
	}
	if _, err := m.State("a"); err != NotBuilt {
		t.Fatalf("got %v", err)
	}
}

func TestStepNoMatchIdempotent(t *testing.T) {
	m, err := NewMachine(
		[]*State{{Name: "a"}, {Name: "b"}},
		[]*Transition{{Source: "a", Target: "b", Guard: never}},
		"a")
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		fired, err := m.Step(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if fired {
			t.Fatal("should not have fired")
		}
		if at, _ := m.Current(); at != "a" {
			t.Fatalf("moved to %s", at)
		}
	}
}

func TestStepFirstMatchWins(t *testing.T) {
	// Guard ordering is significant: the first declared transition
	// whose guard holds fires, and nothing after it is tried.
	m, err := NewMachine(
		[]*State{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		[]*Transition{
			{Source: "a", Target: "b", Guard: always},
			{Source: "a", Target: "c", Guard: always},
		},
		"a")
	if err != nil {
		t.Fatal(err)
	}

	fired, err := m.Step(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !fired {
		t.Fatal("should have fired")
	}
	if at, _ := m.Current(); at != "b" {
		t.Fatalf("at %s", at)
	}
}

func TestCallbackOrder(t *testing.T) {
	var trace []string
	mark := func(s string) Action {
		return func(ctx context.Context, m *Machine, props StepProps) error {
			trace = append(trace, s)
			return nil
		}
	}

	m, err := NewMachine(
		[]*State{
			{Name: "a", During: mark("during-a"), OnExit: mark("exit-a")},
			{Name: "b", OnEnter: mark("enter-b")},
		},
		[]*Transition{
			{Source: "a", Target: "b", Action: mark("action")},
		},
		"a")
	if err != nil {
		t.Fatal(err)
	}

	if _, err = m.Step(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	want := []string{"during-a", "action", "exit-a", "enter-b"}
	if len(trace) != len(want) {
		t.Fatalf("trace %v", trace)
	}
	for i, s := range want {
		if trace[i] != s {
			t.Fatalf("trace %v", trace)
		}
	}
}

func TestOneTransitionPerStep(t *testing.T) {
	m, err := NewMachine(
		[]*State{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		[]*Transition{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
		"a")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Step(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if at, _ := m.Current(); at != "b" {
		t.Fatalf("at %s after one step", at)
	}
}

func TestWalk(t *testing.T) {
	m, err := NewMachine(
		[]*State{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		[]*Transition{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
		"a")
	if err != nil {
		t.Fatal(err)
	}

	fired, err := m.Walk(context.Background(), nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if fired != 2 {
		t.Fatalf("fired %d", fired)
	}
	if at, _ := m.Current(); at != "c" {
		t.Fatalf("at %s", at)
	}
}

func TestStartStop(t *testing.T) {
	m, err := NewMachine(
		[]*State{{Name: "a"}, {Name: "b"}},
		[]*Transition{
			{Source: "a", Target: "b", Guard: func(ctx context.Context, m *Machine, props StepProps) bool {
				_, have := m.Var("go")
				return have
			}},
		},
		"a")
	if err != nil {
		t.Fatal(err)
	}
	m.Tick = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx, nil)
	if !m.IsRunning() {
		t.Fatal("should be running")
	}

	m.SetVar("go", true)

	deadline := time.Now().Add(time.Second)
	for m.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("driving loop never stopped")
		}
		time.Sleep(time.Millisecond)
	}

	if at, _ := m.Current(); at != "b" {
		t.Fatalf("at %s", at)
	}
}

func TestReset(t *testing.T) {
	m, err := NewMachine(
		[]*State{{Name: "a"}, {Name: "b"}},
		[]*Transition{{Source: "a", Target: "b"}},
		"a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Step(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	m.SetVar("answer", "42")
	m.Reset()
	if at, _ := m.Current(); at != "a" {
		t.Fatalf("at %s", at)
	}
	if _, have := m.Var("answer"); have {
		t.Fatal("vars should be cleared")
	}
}
