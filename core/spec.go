package core

import (
	"context"
	"encoding/json"

	"github.com/jsccast/yaml"
)

// Spec is a declarative specification used to build a Machine.
//
// A Spec gives the structure of the machine: a states list, a
// transitions list, and an initial state name.  This data does not
// include any state (such as the name of the current State or the
// machine's variables).
//
// Guards and actions are given as Sources, which resolve against an
// explicit registry of named Go functions or compile via an
// Interpreter.  There is deliberately no reflective lookup.
type Spec struct {
	// Name is the generic name for this machine.  Something like
	// "lunch-order".
	Name string `json:"name,omitempty" yaml:",omitempty"`

	// Doc is general documentation about how this spec works.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Initial is the name of the initial state.
	Initial string `json:"initial" yaml:"initial"`

	// States is the list of state specifications.
	States []*StateSpec `json:"states" yaml:"states"`

	// Transitions is the ordered list of transition
	// specifications.  Order is significant; see Transition.Guard.
	Transitions []*TransitionSpec `json:"transitions" yaml:"transitions"`
}

// StateSpec describes one State.
type StateSpec struct {
	Name    string  `json:"name" yaml:"name"`
	Doc     string  `json:"doc,omitempty" yaml:",omitempty"`
	During  *Source `json:"during,omitempty" yaml:"during,omitempty"`
	OnEnter *Source `json:"onEnter,omitempty" yaml:"onEnter,omitempty"`
	OnExit  *Source `json:"onExit,omitempty" yaml:"onExit,omitempty"`
}

// TransitionSpec describes one Transition.
type TransitionSpec struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// Condition optionally gives the transition's guard.
	Condition *Source `json:"condition,omitempty" yaml:"condition,omitempty"`

	// Action optionally gives the transition's action.
	Action *Source `json:"action,omitempty" yaml:"action,omitempty"`
}

// Source names a guard or action.
//
// Either Name resolves against a Registry, or Interpreter+Source
// compile via one of the given Interpreters.  Name wins when both are
// given.
type Source struct {
	// Name is a key into a Registry.
	Name string `json:"name,omitempty" yaml:",omitempty"`

	// Interpreter names the Interpreter for Source.
	Interpreter string `json:"interpreter,omitempty" yaml:",omitempty"`

	// Source is code for the Interpreter.
	Source string `json:"source,omitempty" yaml:",omitempty"`
}

// Interpreter can compile code into Guards and Actions.
//
// See interpreters/goja for an ECMAScript implementation.
type Interpreter interface {
	// CompileGuard makes a Guard from the given code.
	CompileGuard(ctx context.Context, src string) (Guard, error)

	// CompileAction makes an Action from the given code.
	CompileAction(ctx context.Context, src string) (Action, error)
}

// Registry maps names to Go guards and actions.
//
// A Registry is populated by explicit registration calls at startup.
type Registry struct {
	Guards  map[string]Guard
	Actions map[string]Action
}

// NewRegistry makes an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		Guards:  make(map[string]Guard, 8),
		Actions: make(map[string]Action, 8),
	}
}

// Guard registers a named guard and returns the Registry.
func (r *Registry) Guard(name string, g Guard) *Registry {
	r.Guards[name] = g
	return r
}

// Action registers a named action and returns the Registry.
func (r *Registry) Action(name string, a Action) *Registry {
	r.Actions[name] = a
	return r
}

func (src *Source) guard(ctx context.Context, interpreters map[string]Interpreter, r *Registry, where string) (Guard, error) {
	if src == nil {
		return nil, nil
	}
	if src.Name != "" && r != nil {
		if g, have := r.Guards[src.Name]; have {
			return g, nil
		}
	}
	if src.Source != "" {
		i, have := interpreters[src.Interpreter]
		if !have {
			return nil, InterpreterNotFound
		}
		return i.CompileGuard(ctx, src.Source)
	}
	return nil, &UnresolvedSource{where}
}

func (src *Source) action(ctx context.Context, interpreters map[string]Interpreter, r *Registry, where string) (Action, error) {
	if src == nil {
		return nil, nil
	}
	if src.Name != "" && r != nil {
		if a, have := r.Actions[src.Name]; have {
			return a, nil
		}
	}
	if src.Source != "" {
		i, have := interpreters[src.Interpreter]
		if !have {
			return nil, InterpreterNotFound
		}
		return i.CompileAction(ctx, src.Source)
	}
	return nil, &UnresolvedSource{where}
}

// Compile resolves all sources and builds the Machine.
//
// Compilation fails fast on dangling state references, unresolved
// sources, and missing interpreters.
func (spec *Spec) Compile(ctx context.Context, interpreters map[string]Interpreter, r *Registry) (*Machine, error) {
	states := make([]*State, 0, len(spec.States))
	for _, ss := range spec.States {
		s := &State{
			Name: ss.Name,
			Doc:  ss.Doc,
		}
		var err error
		if s.During, err = ss.During.action(ctx, interpreters, r, ss.Name+".during"); err != nil {
			return nil, err
		}
		if s.OnEnter, err = ss.OnEnter.action(ctx, interpreters, r, ss.Name+".onEnter"); err != nil {
			return nil, err
		}
		if s.OnExit, err = ss.OnExit.action(ctx, interpreters, r, ss.Name+".onExit"); err != nil {
			return nil, err
		}
		states = append(states, s)
	}

	transitions := make([]*Transition, 0, len(spec.Transitions))
	for _, ts := range spec.Transitions {
		t := &Transition{
			Source: ts.Source,
			Target: ts.Target,
		}
		where := ts.Source + "->" + ts.Target
		var err error
		if t.Guard, err = ts.Condition.guard(ctx, interpreters, r, where+".condition"); err != nil {
			return nil, err
		}
		if t.Action, err = ts.Action.action(ctx, interpreters, r, where+".action"); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}

	return NewMachine(states, transitions, spec.Initial)
}

// ParseSpec parses a Spec from JSON or YAML.
//
// JSON if the input starts with '{'; YAML otherwise.
func ParseSpec(bs []byte) (*Spec, error) {
	var spec Spec
	var err error
	if 0 < len(bs) && bs[0] == '{' {
		err = json.Unmarshal(bs, &spec)
	} else {
		err = yaml.Unmarshal(bs, &spec)
	}
	if err != nil {
		return nil, err
	}
	return &spec, nil
}
