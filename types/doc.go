// Package types provides unified type definitions for the crewdeck core.
//
// It is the lowest-level package of the module and has no internal
// dependencies, so every other package can import it without cycles.
package types
