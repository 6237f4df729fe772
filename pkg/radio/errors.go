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

package radio

import (
	"errors"

	"github.com/godbus/dbus/v5"
)

var (
	errNoAdapter      = errors.New("no bluetooth adapter")
	errAdapterOff     = errors.New("adapter is powered off")
	errClosed         = errors.New("radio closed")
	errBadManagedObjs = errors.New("malformed managed objects reply")
)

const (
	errNameAlreadyConnected = "org.bluez.Error.AlreadyConnected"
	errNameNotConnected     = "org.bluez.Error.NotConnected"
	errNameInProgress       = "org.bluez.Error.InProgress"
	errNameDoesNotExist     = "org.bluez.Error.DoesNotExist"
	errNameNotReady         = "org.bluez.Error.NotReady"
	errNameUnknownObject    = "org.freedesktop.DBus.Error.UnknownObject"
	errNameServiceUnknown   = "org.freedesktop.DBus.Error.ServiceUnknown"
	errNameAccessDenied     = "org.freedesktop.DBus.Error.AccessDenied"
	errNameNotAuthorized    = "org.bluez.Error.NotAuthorized"
)

// dbusErrorName returns the remote error name, or "" for local failures.
func dbusErrorName(err error) string {
	var byValue dbus.Error
	if errors.As(err, &byValue) {
		return byValue.Name
	}

	var byPtr *dbus.Error
	if errors.As(err, &byPtr) && byPtr != nil {
		return byPtr.Name
	}

	return ""
}
