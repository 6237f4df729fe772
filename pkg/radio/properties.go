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
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/carverauto/bluecast/pkg/models"
)

const (
	bluezService    = "org.bluez"
	adapterIface    = "org.bluez.Adapter1"
	deviceIface     = "org.bluez.Device1"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// findAdapter picks the adapter named name (e.g. "hci0"), or the first one
// in path order when name is empty.
func findAdapter(objs managedObjects, name string) (dbus.ObjectPath, map[string]dbus.Variant, bool) {
	var (
		best  dbus.ObjectPath
		props map[string]dbus.Variant
	)

	for path, ifaces := range objs {
		p, ok := ifaces[adapterIface]
		if !ok {
			continue
		}

		if name != "" {
			if strings.HasSuffix(string(path), "/"+name) {
				return path, p, true
			}

			continue
		}

		if best == "" || path < best {
			best, props = path, p
		}
	}

	return best, props, best != ""
}

// devicesUnder collects every Device1 below adapter.
func devicesUnder(objs managedObjects, adapter dbus.ObjectPath, now time.Time) []models.Device {
	prefix := string(adapter) + "/"
	out := make([]models.Device, 0, len(objs))

	for path, ifaces := range objs {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}

		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}

		if dev, ok := deviceFromProps(path, props, now); ok {
			out = append(out, dev)
		}
	}

	return out
}

func findDevice(objs managedObjects, addr models.Address, now time.Time) (models.Device, bool) {
	for path, ifaces := range objs {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}

		dev, ok := deviceFromProps(path, props, now)
		if ok && dev.Address == addr {
			return dev, true
		}
	}

	return models.Device{}, false
}

func deviceFromProps(path dbus.ObjectPath, props map[string]dbus.Variant, now time.Time) (models.Device, bool) {
	addr, err := models.ParseAddress(stringProp(props, "Address"))
	if err != nil {
		// Fall back to the object path.
		addr, err = addressFromPath(path)
		if err != nil {
			return models.Device{}, false
		}
	}

	name := stringProp(props, "Name")
	if name == "" {
		name = stringProp(props, "Alias")
	}

	return models.Device{
		Address:       addr,
		Name:          name,
		Connected:     boolProp(props, "Connected"),
		Authenticated: boolProp(props, "Paired"),
		RSSI:          int16Prop(props, "RSSI"),
		Class:         uint32Prop(props, "Class"),
		LastSeen:      now,
	}, true
}

// addressFromPath parses /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func addressFromPath(path dbus.ObjectPath) (models.Address, error) {
	s := string(path)
	if i := strings.LastIndex(s, "/dev_"); i >= 0 {
		s = s[i+len("/dev_"):]
	}

	return models.ParseAddress(s)
}

func devicePath(adapter dbus.ObjectPath, addr models.Address) dbus.ObjectPath {
	return dbus.ObjectPath(string(adapter) + "/dev_" + addr.PathComponent())
}

func stringProp(props map[string]dbus.Variant, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}

	s, _ := v.Value().(string)

	return s
}

func boolProp(props map[string]dbus.Variant, key string) bool {
	v, ok := props[key]
	if !ok {
		return false
	}

	b, _ := v.Value().(bool)

	return b
}

func int16Prop(props map[string]dbus.Variant, key string) int16 {
	v, ok := props[key]
	if !ok {
		return 0
	}

	switch n := v.Value().(type) {
	case int16:
		return n
	case int32:
		return int16(n)
	default:
		return 0
	}
}

func uint32Prop(props map[string]dbus.Variant, key string) uint32 {
	v, ok := props[key]
	if !ok {
		return 0
	}

	n, _ := v.Value().(uint32)

	return n
}
