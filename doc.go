// Package parley provides machinery for guided, multi-turn
// conversations over chat channels.
//
// The state machine core is in package 'core', the composable dialog
// machines are in 'dialog', and the concurrent pipeline roles are in
// 'pipeline'.  A demo process is in `cmd/parley`.
package parley
