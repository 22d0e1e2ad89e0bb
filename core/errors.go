package core

// These errors are configuration errors, raised at build time and
// never recovered.

import (
	"errors"
)

// NotBuilt occurs when a Machine is used before it has been built.
var NotBuilt = errors.New("machine not built")

// InterpreterNotFound occurs when you try to Compile a Source and the
// required interpreter isn't in the given map of interpreters.
var InterpreterNotFound = errors.New("interpreter not found")

// UnknownState occurs when a state name doesn't resolve against the
// machine's state map.
type UnknownState struct {
	Name  string
	Where string
}

func (e *UnknownState) Error() string {
	if e.Where == "" {
		return `state "` + e.Name + `" not found`
	}
	return `state "` + e.Name + `" (` + e.Where + `) not found`
}

// DuplicateState occurs when two states in a build share a name.
type DuplicateState struct {
	Name string
}

func (e *DuplicateState) Error() string {
	return `duplicate state "` + e.Name + `"`
}

// UnresolvedSource occurs when a Source names neither a registry
// entry nor interpretable code.
type UnresolvedSource struct {
	Where string
}

func (e *UnresolvedSource) Error() string {
	return "unresolved source at " + e.Where
}
