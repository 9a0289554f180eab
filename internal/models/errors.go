// Package models defines the data structures for the bike price predictor.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// User-facing messages.
const (
	MsgMissingFields  = "Please fill in all the fields."
	MsgBackendOffline = "Could not connect to the backend. Please ensure the prediction service is running."
)

// Common errors
var (
	ErrMissingFields  = errors.New("missing required fields")
	ErrBackendOffline = errors.New("prediction service unreachable")
	ErrUnknownField   = errors.New("unknown form field")
	ErrInvalidOwner   = errors.New("invalid owner type")
	ErrInvalidNumber  = errors.New("must be a whole number")
	ErrNoPrediction   = errors.New("prediction service returned no prediction")
)

// ValidationError reports form values that block a submission.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConnectivityError reports a failed mappings fetch.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	if e.Err == nil {
		return ErrBackendOffline.Error()
	}
	return fmt.Sprintf("%s: %v", ErrBackendOffline, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrBackendOffline) match any ConnectivityError.
func (e *ConnectivityError) Is(target error) bool {
	return target == ErrBackendOffline
}

// PredictionError reports a failed prediction call. StatusCode is zero when
// the request never produced an HTTP response.
type PredictionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *PredictionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("HTTP error! Status: %d", e.StatusCode)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// NewPredictionStatusError builds the error for a non-2xx prediction response,
// preferring the message supplied by the service.
func NewPredictionStatusError(status int, serviceMessage string) *PredictionError {
	msg := strings.TrimSpace(serviceMessage)
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! Status: %d", status)
	}
	return &PredictionError{StatusCode: status, Message: msg}
}

// UserMessage maps an error to the text shown in the form's error banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var connErr *ConnectivityError
	if errors.As(err, &connErr) {
		return MsgBackendOffline
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		if errors.Is(valErr, ErrMissingFields) {
			return MsgMissingFields
		}
		return valErr.Error()
	}

	var predErr *PredictionError
	if errors.As(err, &predErr) {
		return predErr.Error()
	}

	return err.Error()
}
