package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when the projection endpoint receives a request.
// Context carries the request ID.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler has written its response.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Batch    int // number of projections in the request body
	Duration time.Duration
}
