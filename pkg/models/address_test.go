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
	"encoding/json"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{name: "colon form", input: "00:1A:7D:DA:71:13", want: 0x001A7DDA7113},
		{name: "lower case", input: "00:1a:7d:da:71:13", want: 0x001A7DDA7113},
		{name: "underscore form", input: "00_1A_7D_DA_71_13", want: 0x001A7DDA7113},
		{name: "dash form", input: "AA-BB-CC-DD-EE-FF", want: 0xAABBCCDDEEFF},
		{name: "too short", input: "AA:BB:CC", wantErr: true},
		{name: "bad octet", input: "AA:BB:CC:DD:EE:GG", wantErr: true},
		{name: "three digit octet", input: "AAA:BB:CC:DD:EE:F", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddressFormatting(t *testing.T) {
	a := MustParseAddress("00:1a:7d:da:71:13")

	assert.Equal(t, "00:1A:7D:DA:71:13", a.String())
	assert.Equal(t, "00_1A_7D_DA_71_13", a.PathComponent())
	assert.False(t, a.IsZero())
	assert.True(t, Address(0).IsZero())
}

func TestAddressConfigDecoding(t *testing.T) {
	type cfg struct {
		Target Address   `json:"target" toml:"target" yaml:"target"`
		Wait   Duration  `json:"wait" toml:"wait" yaml:"wait"`
		List   []Address `json:"list" toml:"list" yaml:"list"`
	}

	want := cfg{
		Target: MustParseAddress("AA:BB:CC:DD:EE:01"),
		Wait:   Duration(1500 * 1e6),
		List:   []Address{MustParseAddress("AA:BB:CC:DD:EE:02")},
	}

	t.Run("json", func(t *testing.T) {
		var got cfg

		err := json.Unmarshal([]byte(`{"target":"AA:BB:CC:DD:EE:01","wait":"1.5s","list":["AA:BB:CC:DD:EE:02"]}`), &got)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("toml", func(t *testing.T) {
		var got cfg

		_, err := toml.Decode("target = \"AA:BB:CC:DD:EE:01\"\nwait = \"1.5s\"\nlist = [\"AA:BB:CC:DD:EE:02\"]\n", &got)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("yaml", func(t *testing.T) {
		var got cfg

		err := yaml.Unmarshal([]byte("target: AA:BB:CC:DD:EE:01\nwait: 1.5s\nlist:\n  - AA:BB:CC:DD:EE:02\n"), &got)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestDeviceMerge(t *testing.T) {
	d := Device{Address: 1, Name: "Headset", RSSI: -40}
	d.Merge(&Device{Address: 1, Name: "Headset Pro", Authenticated: true})

	assert.Equal(t, "Headset Pro", d.Name)
	assert.True(t, d.Authenticated)
	assert.Equal(t, int16(-40), d.RSSI, "unknown RSSI must not clobber a known reading")
}
