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
	"strconv"
	"strings"
)

// Address is a 48-bit radio hardware address stored in the low bits of a uint64.
type Address uint64

const (
	addressOctets = 6
	addressMask   = 1<<48 - 1
)

var errInvalidAddress = errors.New("invalid radio address")

// ParseAddress accepts "AA:BB:CC:DD:EE:FF", "AA-BB-CC-DD-EE-FF" or "AA_BB_CC_DD_EE_FF".
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == '-' || r == '_'
	})
	if len(parts) != addressOctets {
		return 0, fmt.Errorf("%w: %q", errInvalidAddress, s)
	}

	var v uint64

	for _, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("%w: %q", errInvalidAddress, s)
		}

		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errInvalidAddress, s)
		}

		v = v<<8 | b
	}

	return Address(v), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}

	return a
}

func (a Address) octets() [addressOctets]byte {
	var out [addressOctets]byte

	v := uint64(a) & addressMask
	for i := addressOctets - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}

	return out
}

func (a Address) join(sep string) string {
	o := a.octets()

	var b strings.Builder

	for i, octet := range o {
		if i > 0 {
			b.WriteString(sep)
		}

		fmt.Fprintf(&b, "%02X", octet)
	}

	return b.String()
}

// String returns the colon separated upper-case form.
func (a Address) String() string {
	return a.join(":")
}

// PathComponent returns the underscore form used in BlueZ object paths and
// PulseAudio/PipeWire node names (AA_BB_CC_DD_EE_FF).
func (a Address) PathComponent() string {
	return a.join("_")
}

// IsZero reports whether a is the unset address.
func (a Address) IsZero() bool {
	return a == 0
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}
