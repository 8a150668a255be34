// Package events declares the structs published on the event bus. Each event
// pair brackets one unit of work; subscribers correlate them through the
// request ID carried in the context.
package events

import "time"

// SerializeStart is emitted before a value is projected.
type SerializeStart struct {
	Query  string
	Syntax string // "native" or "graphql"
	Case   string
}

// SerializeFinish is emitted after a projection, successful or not.
type SerializeFinish struct {
	Query        string
	Case         string
	Instructions int // record instructions built
	Records      int // record values visited
	Err          error
	Duration     time.Duration
}

// Preload is emitted after associations were loaded ahead of a projection.
type Preload struct {
	Plan     string
	Mode     string // "preload" or "reload"
	Records  int
	Err      error
	Duration time.Duration
}
