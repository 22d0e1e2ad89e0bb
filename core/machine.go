package core

import (
	"context"
	"sync"
	"time"
)

var (
	// DefaultTick is the driving loop interval used by Start when
	// a Machine doesn't specify its own.
	DefaultTick = 20 * time.Millisecond
)

// StepProps carries per-step parameters into guards and actions.
type StepProps map[string]interface{}

// Copy makes a shallow copy of the StepProps.
func (ps StepProps) Copy() StepProps {
	acc := make(StepProps, len(ps))
	for p, v := range ps {
		acc[p] = v
	}
	return acc
}

// Guard is a transition predicate.
//
// A nil Guard is always true.
type Guard func(ctx context.Context, m *Machine, props StepProps) bool

// Action is a procedure run when a transition fires or when a state
// is entered, exited, or resident.
//
// A nil Action is a no-op.
type Action func(ctx context.Context, m *Machine, props StepProps) error

// State is a name plus three optional callbacks.
//
// A State is stateless beyond its name: two States with the same name
// are the same state.
type State struct {
	// Name identifies the state within its machine.
	Name string `json:"name" yaml:"name"`

	// Doc is optional documentation.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// During runs at the start of every Step while this state is
	// current.
	During Action `json:"-" yaml:"-"`

	// OnEnter runs when a transition into this state fires.
	OnEnter Action `json:"-" yaml:"-"`

	// OnExit runs when a transition out of this state fires.
	OnExit Action `json:"-" yaml:"-"`
}

func (s *State) String() string {
	return s.Name
}

// Transition is a possible move from Source to Target.
type Transition struct {
	// Source is the name of the state this transition leaves.
	Source string `json:"source" yaml:"source"`

	// Target is the name of the state this transition enters.
	Target string `json:"target" yaml:"target"`

	// Guard must hold for the transition to fire.  Guards are
	// evaluated in declaration order, and the first transition out
	// of the current state whose Guard holds is the one that
	// fires.  That ordering is load-bearing.
	Guard Guard `json:"-" yaml:"-"`

	// Action runs when the transition fires, before the source
	// state's OnExit.
	Action Action `json:"-" yaml:"-"`
}

// Machine is a set of states, their outgoing transitions, a current
// state name, and machine-local mutable variables.
//
// A Machine is built once via NewMachine and then driven by Step
// (one transition attempt per call) or by Start (a periodic driving
// loop).  A Machine must not be shared across pipeline roles; the
// role that created it owns it.
type Machine struct {
	// Tick, if not zero, is the driving loop interval for Start.
	Tick time.Duration

	states      map[string]*State
	transitions map[string][]*Transition
	initial     string
	current     string
	built       bool

	vars    map[string]interface{}
	varsMu  sync.Mutex
	running bool

	// mu serializes Step against itself: the driving loop and a
	// side-channel listener can both call Step.
	mu sync.Mutex
}

// NewMachine builds a Machine from states, transitions, and the name
// of the initial state.
//
// Fails fast with a configuration error if initial isn't among the
// states, if two states share a name, or if any transition references
// a source or target that isn't a state.
func NewMachine(states []*State, transitions []*Transition, initial string) (*Machine, error) {
	m := &Machine{
		states:      make(map[string]*State, len(states)),
		transitions: make(map[string][]*Transition, len(states)),
		vars:        make(map[string]interface{}, 8),
	}

	for _, s := range states {
		if _, have := m.states[s.Name]; have {
			return nil, &DuplicateState{s.Name}
		}
		m.states[s.Name] = s
	}

	if _, have := m.states[initial]; !have {
		return nil, &UnknownState{initial, "initial"}
	}

	for _, t := range transitions {
		if _, have := m.states[t.Source]; !have {
			return nil, &UnknownState{t.Source, "transition source"}
		}
		if _, have := m.states[t.Target]; !have {
			return nil, &UnknownState{t.Target, "transition target"}
		}
		m.transitions[t.Source] = append(m.transitions[t.Source], t)
	}

	m.initial = initial
	m.current = initial
	m.built = true

	return m, nil
}

// Current returns the name of the current state.
func (m *Machine) Current() (string, error) {
	if !m.built {
		return "", NotBuilt
	}
	m.mu.Lock()
	at := m.current
	m.mu.Unlock()
	return at, nil
}

// State looks up a State by name.
func (m *Machine) State(name string) (*State, error) {
	if !m.built {
		return nil, NotBuilt
	}
	s, have := m.states[name]
	if !have {
		return nil, &UnknownState{name, ""}
	}
	return s, nil
}

// Terminal reports whether the current state has no outgoing
// transitions.
func (m *Machine) Terminal() bool {
	m.mu.Lock()
	n := len(m.transitions[m.current])
	m.mu.Unlock()
	return n == 0
}

// Step makes exactly one transition attempt.
//
// The current state's During runs first.  Then the current state's
// outgoing transitions are scanned in declaration order; the first
// whose Guard holds fires: its Action runs, the old state's OnExit
// runs, the state pointer moves, and the new state's OnEnter runs.
// No further transitions are tried during this call.
//
// Step returns whether a transition fired.  When no guard holds, the
// current state is unchanged and Step is a no-op (beyond During).
//
// Guards and actions must not call Step (or Walk) on this machine.
func (m *Machine) Step(ctx context.Context, props StepProps) (bool, error) {
	if !m.built {
		return false, NotBuilt
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	at := m.states[m.current]

	if at.During != nil {
		if err := at.During(ctx, m, props); err != nil {
			return false, err
		}
	}

	for _, t := range m.transitions[m.current] {
		if t.Guard != nil && !t.Guard(ctx, m, props) {
			continue
		}
		if t.Action != nil {
			if err := t.Action(ctx, m, props); err != nil {
				return false, err
			}
		}
		if at.OnExit != nil {
			if err := at.OnExit(ctx, m, props); err != nil {
				return false, err
			}
		}
		m.current = t.Target
		to := m.states[t.Target]
		if to.OnEnter != nil {
			if err := to.OnEnter(ctx, m, props); err != nil {
				return true, err
			}
		}
		return true, nil
	}

	return false, nil
}

// Walk calls Step until no transition fires (or the limit runs out).
//
// Handy for tests and for machines whose guards don't depend on the
// passage of time.
func (m *Machine) Walk(ctx context.Context, props StepProps, limit int) (int, error) {
	fired := 0
	for i := 0; i < limit; i++ {
		moved, err := m.Step(ctx, props)
		if err != nil {
			return fired, err
		}
		if !moved {
			return fired, nil
		}
		fired++
	}
	return fired, nil
}

// Start begins a periodic driving loop that calls Step every Tick.
//
// The loop ends when Stop is called, when the context is done, or
// when the machine reaches a terminal state.  Start returns
// immediately; the loop runs in its own goroutine.
func (m *Machine) Start(ctx context.Context, props StepProps) {
	m.varsMu.Lock()
	if m.running {
		m.varsMu.Unlock()
		return
	}
	m.running = true
	m.varsMu.Unlock()

	tick := m.Tick
	if tick <= 0 {
		tick = DefaultTick
	}

	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.setRunning(false)
				return
			case <-ticker.C:
				if !m.IsRunning() {
					return
				}
				if _, err := m.Step(ctx, props); err != nil {
					// Transient; the next tick gets
					// another chance.
					continue
				}
				if m.Terminal() {
					m.setRunning(false)
					return
				}
			}
		}
	}()
}

// Stop requests termination of the driving loop.
func (m *Machine) Stop() {
	m.setRunning(false)
}

// IsRunning reports whether the driving loop is live.
func (m *Machine) IsRunning() bool {
	m.varsMu.Lock()
	r := m.running
	m.varsMu.Unlock()
	return r
}

func (m *Machine) setRunning(r bool) {
	m.varsMu.Lock()
	m.running = r
	m.varsMu.Unlock()
}

// Reset moves the machine back to its initial state and clears its
// variables.
//
// Reset must not be called while the driving loop is live.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
	m.varsMu.Lock()
	m.vars = make(map[string]interface{}, 8)
	m.varsMu.Unlock()
}

// Var returns a machine-local variable.
func (m *Machine) Var(name string) (interface{}, bool) {
	m.varsMu.Lock()
	v, have := m.vars[name]
	m.varsMu.Unlock()
	return v, have
}

// StringVar returns a machine-local variable as a string ("" when
// absent or not a string).
func (m *Machine) StringVar(name string) string {
	v, have := m.Var(name)
	if !have {
		return ""
	}
	s, is := v.(string)
	if !is {
		return ""
	}
	return s
}

// SetVar sets a machine-local variable.
func (m *Machine) SetVar(name string, v interface{}) {
	m.varsMu.Lock()
	m.vars[name] = v
	m.varsMu.Unlock()
}
