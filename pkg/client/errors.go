package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrBaseURLRequired is returned by New when no engine URL is configured.
	ErrBaseURLRequired = errors.New("base url is required")

	// ErrGameIDRequired is returned when a fetch is attempted without a game ID.
	ErrGameIDRequired = errors.New("game id is required")
)

// ErrorClass represents a classification of engine request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents response bodies that are not valid JSON
	// for the expected shape.
	ErrorClassDecode ErrorClass = "decode"
)

// EngineError is a failed request to the game engine.
type EngineError struct {
	Endpoint   string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("engine %s error on %s: %s: %v",
				e.ErrorClass, e.Endpoint, e.Message, e.Err)
		}
		return fmt.Sprintf("engine %s error on %s: %s", e.ErrorClass, e.Endpoint, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("engine %s error on %s (status %d): %s: %v",
			e.ErrorClass, e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("engine %s error on %s (status %d): %s",
		e.ErrorClass, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an engine 404, i.e. the game does not exist.
func IsNotFound(err error) bool {
	var engineErr *EngineError
	return errors.As(err, &engineErr) && engineErr.StatusCode == 404
}

// classifyStatus maps an HTTP status code to an ErrorClass.
// Codes below 400 are not errors and yield "".
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
