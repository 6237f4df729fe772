/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"errors"
	"fmt"
)

var (
	ErrRadioUnavailable     = errors.New("radio unavailable")
	ErrNoDevices            = errors.New("no devices found")
	ErrEnumeration          = errors.New("device enumeration failed")
	ErrConnectionFailed     = errors.New("connection failed")
	ErrSinkResolutionFailed = errors.New("no audio endpoint for address")
	ErrNotInitialized       = errors.New("not initialized")
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrDeviceNotFound       = errors.New("device not found")
	ErrAudioInitFailed      = errors.New("audio initialization failed")
)

// ErrorKind classifies failures for hosts that only see a kind and a message.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindRadioUnavailable
	KindEnumerationTransient
	KindEnumeration
	KindConnectionFailed
	KindSinkResolutionFailed
	KindNotInitialized
	KindInvalidParameter
	KindDeviceNotFound
	KindAudioInitFailed
	KindUnknown
)

var kindNames = map[ErrorKind]string{
	KindNone:                 "none",
	KindRadioUnavailable:     "radio_unavailable",
	KindEnumerationTransient: "enumeration_transient",
	KindEnumeration:          "enumeration_error",
	KindConnectionFailed:     "connection_failed",
	KindSinkResolutionFailed: "sink_resolution_failed",
	KindNotInitialized:       "not_initialized",
	KindInvalidParameter:     "invalid_parameter",
	KindDeviceNotFound:       "device_not_found",
	KindAudioInitFailed:      "audio_init_failed",
	KindUnknown:              "unknown",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// kindSentinels is ordered: the first match wins in KindOf.
var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindRadioUnavailable, ErrRadioUnavailable},
	{KindEnumerationTransient, ErrNoDevices},
	{KindEnumeration, ErrEnumeration},
	{KindSinkResolutionFailed, ErrSinkResolutionFailed},
	{KindDeviceNotFound, ErrDeviceNotFound},
	{KindConnectionFailed, ErrConnectionFailed},
	{KindNotInitialized, ErrNotInitialized},
	{KindInvalidParameter, ErrInvalidParameter},
	{KindAudioInitFailed, ErrAudioInitFailed},
}

func (k ErrorKind) sentinel() error {
	for _, s := range kindSentinels {
		if s.kind == k {
			return s.err
		}
	}

	return nil
}

// OperationError is a host-visible failure with enough context to decide on a retry.
type OperationError struct {
	Kind    ErrorKind
	Op      string
	Address Address
	Err     error
}

// NewOperationError wraps err with kind, operation name and address.
func NewOperationError(kind ErrorKind, op string, addr Address, err error) *OperationError {
	return &OperationError{Kind: kind, Op: op, Address: addr, Err: err}
}

func (e *OperationError) Error() string {
	msg := e.Op
	if !e.Address.IsZero() {
		msg += " " + e.Address.String()
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg + ": " + e.Kind.String()
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the operation's kind.
func (e *OperationError) Is(target error) bool {
	s := e.Kind.sentinel()

	return s != nil && s == target
}

// KindOf maps an arbitrary error to its kind. nil maps to KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Kind != KindNone {
		return opErr.Kind
	}

	for _, s := range kindSentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}

	return KindUnknown
}

// Code is the stable numeric result handed across a host boundary.
type Code int

const (
	CodeSuccess          Code = 0
	CodeNotInitialized   Code = 1
	CodeInvalidParameter Code = 2
	CodeOperationFailed  Code = 3
	CodeDeviceNotFound   Code = 4
	CodeConnectionFailed Code = 5
	CodeAudioInitFailed  Code = 6
	CodeUnknown          Code = 255
)

// CodeOf maps err to a result code.
func CodeOf(err error) Code {
	switch KindOf(err) {
	case KindNone:
		return CodeSuccess
	case KindNotInitialized:
		return CodeNotInitialized
	case KindInvalidParameter:
		return CodeInvalidParameter
	case KindDeviceNotFound, KindSinkResolutionFailed:
		return CodeDeviceNotFound
	case KindConnectionFailed:
		return CodeConnectionFailed
	case KindAudioInitFailed:
		return CodeAudioInitFailed
	case KindRadioUnavailable, KindEnumeration, KindEnumerationTransient:
		return CodeOperationFailed
	case KindUnknown:
		return CodeUnknown
	default:
		return CodeUnknown
	}
}
