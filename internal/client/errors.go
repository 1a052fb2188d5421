package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, strings.TrimSpace(e.Code), msg)
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, msg)
}

// parseHTTPError understands both the {"error":{"message","code"}} envelope
// and the flat {"error":"..."} body of /api/agent.
func parseHTTPError(status int, raw []byte) error {
	body := strings.TrimSpace(string(raw))

	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code,omitempty"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && strings.TrimSpace(env.Error.Message) != "" {
		return &HTTPError{
			StatusCode: status,
			Message:    strings.TrimSpace(env.Error.Message),
			Code:       strings.TrimSpace(env.Error.Code),
			Body:       body,
		}
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && strings.TrimSpace(flat.Error) != "" {
		return &HTTPError{StatusCode: status, Message: strings.TrimSpace(flat.Error), Body: body}
	}
	return &HTTPError{StatusCode: status, Body: body}
}
