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

package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/models"
)

// NotificationKind says what a Notification reports.
type NotificationKind string

const (
	DeviceDiscovered NotificationKind = "device_discovered"
	OperationFailed  NotificationKind = "operation_failed"
)

// Notification is an event pushed to the host.
type Notification struct {
	ID      uuid.UUID        `json:"id"`
	Kind    NotificationKind `json:"kind"`
	Time    time.Time        `json:"time"`
	Domain  Domain           `json:"domain"`
	Address models.Address   `json:"address"`
	Device  *models.Device   `json:"device,omitempty"`
	Error   models.ErrorKind `json:"error_kind,omitempty"`
	Code    models.Code      `json:"code,omitempty"`
	Message string           `json:"message"`
}

// notifier is a bounded outbox. Discoveries wait for room until the outbox
// closes, so each new address is announced exactly once. Failure reports
// wait at most timeout and are then dropped.
type notifier struct {
	log     logger.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	ch     chan Notification
	done   chan struct{}

	closeOnce sync.Once
	dropped   atomic.Uint64
}

func newNotifier(cfg NotificationConfig, log logger.Logger) *notifier {
	return &notifier{
		log:     log,
		timeout: cfg.DeliveryTimeout.Std(),
		ch:      make(chan Notification, cfg.Buffer),
		done:    make(chan struct{}),
	}
}

func (n *notifier) publish(note Notification) {
	note.ID = uuid.New()
	note.Time = time.Now()

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}

	select {
	case n.ch <- note:
		return
	default:
	}

	if note.Kind == DeviceDiscovered {
		select {
		case n.ch <- note:
		case <-n.done:
			n.drop(note)
		}

		return
	}

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()

	select {
	case n.ch <- note:
	case <-timer.C:
		n.drop(note)
	case <-n.done:
		n.drop(note)
	}
}

func (n *notifier) drop(note Notification) {
	total := n.dropped.Add(1)

	n.log.Warn().
		Str("kind", string(note.Kind)).
		Str("address", note.Address.String()).
		Uint64("dropped_total", total).
		Msg("Notification dropped, host is not reading")
}

// close wakes any waiting publisher and then closes the channel.
func (n *notifier) close() {
	n.closeOnce.Do(func() {
		close(n.done)

		n.mu.Lock()
		n.closed = true
		close(n.ch)
		n.mu.Unlock()
	})
}
