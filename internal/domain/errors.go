package domain

import (
	"errors"
	"fmt"
)

// ProviderError is returned by the script producer.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type MalformedScriptError struct {
	Reason string
}

func (e *MalformedScriptError) Error() string {
	return "malformed script: " + e.Reason
}

var ErrRenderTimeout = errors.New("video generation timed out")

type RenderError struct {
	Message string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "render failed"
}

func (e *RenderError) Unwrap() error { return e.Err }

type UploadError struct {
	Target  UploadTarget
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "upload failed"
}

func (e *UploadError) Unwrap() error { return e.Err }
