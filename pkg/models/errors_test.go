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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfAndCodeOf(t *testing.T) {
	addr := MustParseAddress("AA:BB:CC:DD:EE:FF")

	tests := []struct {
		name string
		err  error
		kind ErrorKind
		code Code
	}{
		{"nil", nil, KindNone, CodeSuccess},
		{"radio", fmt.Errorf("start: %w", ErrRadioUnavailable), KindRadioUnavailable, CodeOperationFailed},
		{"no devices", ErrNoDevices, KindEnumerationTransient, CodeOperationFailed},
		{"connection", NewOperationError(KindConnectionFailed, "connect", addr, errors.New("busy")), KindConnectionFailed, CodeConnectionFailed},
		{"sink", fmt.Errorf("register: %w", ErrSinkResolutionFailed), KindSinkResolutionFailed, CodeDeviceNotFound},
		{"not initialized", ErrNotInitialized, KindNotInitialized, CodeNotInitialized},
		{"audio", ErrAudioInitFailed, KindAudioInitFailed, CodeAudioInitFailed},
		{"foreign", errors.New("boom"), KindUnknown, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestOperationError(t *testing.T) {
	addr := MustParseAddress("AA:BB:CC:DD:EE:FF")
	cause := errors.New("org.bluez.Error.Failed")

	err := NewOperationError(KindConnectionFailed, "connect", addr, cause)

	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRadioUnavailable)
	assert.Equal(t, "connect AA:BB:CC:DD:EE:FF: org.bluez.Error.Failed", err.Error())
	assert.Equal(t, "connection_failed", KindOf(err).String())
}
