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

import "time"

// Device is the most recent observation of a remote radio device. Address is
// the identity; every other field is overwritten by later sightings.
type Device struct {
	Address       Address   `json:"address"`
	Name          string    `json:"name"`
	Connected     bool      `json:"connected"`
	Authenticated bool      `json:"authenticated"`       // paired
	RSSI          int16     `json:"rssi,omitempty"`      // 0 when unknown
	Class         uint32    `json:"class_of_device"`     // class-of-device code
	FirstSeen     time.Time `json:"first_seen,omitempty"`
	LastSeen      time.Time `json:"last_seen,omitempty"`
}

// Merge copies the mutable fields of a newer sighting into d. Identity and
// FirstSeen are kept.
func (d *Device) Merge(newer *Device) {
	d.Name = newer.Name
	d.Connected = newer.Connected
	d.Authenticated = newer.Authenticated
	d.Class = newer.Class

	if newer.RSSI != 0 {
		d.RSSI = newer.RSSI
	}

	if !newer.LastSeen.IsZero() {
		d.LastSeen = newer.LastSeen
	}
}
