// Package driving defines the interfaces through which callers (CLI,
// scheduler) drive the collection engine.
package driving
