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

package pulse

import (
	"bufio"
	"strings"

	"github.com/carverauto/bluecast/pkg/models"
)

// Bluetooth sink names carry the address in underscore form: PulseAudio uses
// bluez_sink.AA_BB_CC_DD_EE_FF.a2dp_sink, PipeWire bluez_output.AA_BB_CC_DD_EE_FF.1.
var sinkPrefixes = []string{"bluez_sink.", "bluez_output."}

// findSink scans `pactl list short sinks` output for addr's sink.
func findSink(list string, addr models.Address) (string, bool) {
	want := addr.PathComponent()

	sc := bufio.NewScanner(strings.NewReader(list))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}

		name := fields[1]

		for _, prefix := range sinkPrefixes {
			rest, ok := strings.CutPrefix(name, prefix)
			if !ok || len(rest) < len(want) {
				continue
			}

			if strings.EqualFold(rest[:len(want)], want) &&
				(len(rest) == len(want) || rest[len(want)] == '.') {
				return name, true
			}
		}
	}

	return "", false
}
