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

package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/models"
)

var (
	errRejected = errors.New("org.bluez.Error.Failed")

	addr1 = models.MustParseAddress("AA:BB:CC:DD:EE:01")
	addr2 = models.MustParseAddress("AA:BB:CC:DD:EE:02")
)

func newTestPool(t *testing.T) (*Pool, *MockProfiles, *MockStateSource) {
	t.Helper()

	ctrl := gomock.NewController(t)
	profiles := NewMockProfiles(ctrl)
	state := NewMockStateSource(ctrl)

	return New(profiles, state, logger.NewTestLogger(), nil), profiles, state
}

func connected(addr models.Address, up bool) models.Device {
	return models.Device{Address: addr, Connected: up}
}

func TestConnectTwiceEnablesOnce(t *testing.T) {
	p, profiles, state := newTestPool(t)
	ctx := context.Background()

	profiles.EXPECT().EnableAudioSink(gomock.Any(), addr1).Return(nil).Times(1)
	state.EXPECT().DeviceInfo(gomock.Any(), addr1).Return(connected(addr1, true), nil)

	require.NoError(t, p.Connect(ctx, addr1))
	require.NoError(t, p.Connect(ctx, addr1))

	assert.Equal(t, []models.Address{addr1}, p.Connected())
}

func TestConnectFailureLeavesNoEntry(t *testing.T) {
	p, profiles, _ := newTestPool(t)
	ctx := context.Background()

	profiles.EXPECT().EnableAudioSink(gomock.Any(), addr1).Return(errRejected)

	err := p.Connect(ctx, addr1)
	require.ErrorIs(t, err, models.ErrConnectionFailed)
	require.ErrorIs(t, err, errRejected)
	assert.Equal(t, models.KindConnectionFailed, models.KindOf(err))

	var opErr *models.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, addr1, opErr.Address)

	assert.Empty(t, p.Connected())
	assert.False(t, p.IsConnected(ctx, addr1))
}

func TestIsConnected(t *testing.T) {
	t.Run("never connected does not ask the radio", func(t *testing.T) {
		p, _, _ := newTestPool(t)
		assert.False(t, p.IsConnected(context.Background(), addr1))
	})

	t.Run("external drop is reported", func(t *testing.T) {
		p, profiles, state := newTestPool(t)
		ctx := context.Background()

		profiles.EXPECT().EnableAudioSink(gomock.Any(), addr1).Return(nil)
		gomock.InOrder(
			state.EXPECT().DeviceInfo(gomock.Any(), addr1).Return(connected(addr1, true), nil),
			state.EXPECT().DeviceInfo(gomock.Any(), addr1).Return(connected(addr1, false), nil),
		)

		require.NoError(t, p.Connect(ctx, addr1))
		assert.True(t, p.IsConnected(ctx, addr1))
		assert.False(t, p.IsConnected(ctx, addr1))
		assert.Equal(t, []models.Address{addr1}, p.Connected(), "belief is kept until disconnect")
	})

	t.Run("query failure reads as not connected", func(t *testing.T) {
		p, profiles, state := newTestPool(t)
		ctx := context.Background()

		profiles.EXPECT().EnableAudioSink(gomock.Any(), addr1).Return(nil)
		state.EXPECT().DeviceInfo(gomock.Any(), addr1).Return(models.Device{}, models.ErrDeviceNotFound)

		require.NoError(t, p.Connect(ctx, addr1))
		assert.False(t, p.IsConnected(ctx, addr1))
	})
}

func TestReconnectAfterExternalDrop(t *testing.T) {
	p, profiles, state := newTestPool(t)
	ctx := context.Background()

	profiles.EXPECT().EnableAudioSink(gomock.Any(), addr1).Return(nil).Times(2)
	state.EXPECT().DeviceInfo(gomock.Any(), addr1).Return(connected(addr1, false), nil)

	require.NoError(t, p.Connect(ctx, addr1))
	require.NoError(t, p.Connect(ctx, addr1), "a dropped link is enabled again")
}

func TestDisconnect(t *testing.T) {
	t.Run("success removes the entry", func(t *testing.T) {
		p, profiles, _ := newTestPool(t)
		ctx := context.Background()

		profiles.EXPECT().EnableAudioSink(gomock.Any(), addr1).Return(nil)
		profiles.EXPECT().DisableAudioSink(gomock.Any(), addr1).Return(nil)

		require.NoError(t, p.Connect(ctx, addr1))
		require.NoError(t, p.Disconnect(ctx, addr1))
		assert.Empty(t, p.Connected())
	})

	t.Run("failure keeps the entry", func(t *testing.T) {
		p, profiles, _ := newTestPool(t)
		ctx := context.Background()

		profiles.EXPECT().EnableAudioSink(gomock.Any(), addr1).Return(nil)
		profiles.EXPECT().DisableAudioSink(gomock.Any(), addr1).Return(errRejected)

		require.NoError(t, p.Connect(ctx, addr1))
		require.ErrorIs(t, p.Disconnect(ctx, addr1), models.ErrConnectionFailed)
		assert.Equal(t, []models.Address{addr1}, p.Connected())
	})

	t.Run("unknown address still reaches the radio", func(t *testing.T) {
		p, profiles, _ := newTestPool(t)

		profiles.EXPECT().DisableAudioSink(gomock.Any(), addr2).Return(nil)
		require.NoError(t, p.Disconnect(context.Background(), addr2))
	})
}

func TestDisconnectAll(t *testing.T) {
	p, profiles, _ := newTestPool(t)
	ctx := context.Background()

	profiles.EXPECT().EnableAudioSink(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	profiles.EXPECT().DisableAudioSink(gomock.Any(), addr1).Return(nil)
	profiles.EXPECT().DisableAudioSink(gomock.Any(), addr2).Return(errRejected)

	require.NoError(t, p.Connect(ctx, addr1))
	require.NoError(t, p.Connect(ctx, addr2))

	err := p.DisconnectAll(ctx)
	require.ErrorIs(t, err, errRejected)
	assert.Equal(t, []models.Address{addr2}, p.Connected())
}
