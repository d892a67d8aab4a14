package handler

import "time"

// Response is the envelope for JSON success responses. Errors use the
// mapped error body instead.
type Response struct {
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// StatusResponse is the data of /ready.
type StatusResponse struct {
	Status   string `json:"status"`
	State    string `json:"state,omitempty"`
	InFlight int64  `json:"inflight"`
}

// TimeResponse is the data of /time.
type TimeResponse struct {
	Slept string    `json:"slept"`
	Now   time.Time `json:"now"`
}
