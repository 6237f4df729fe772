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

package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/bluecast/pkg/models"
)

var (
	sinkA = models.MustParseAddress("AA:BB:CC:DD:EE:0A")
	sinkB = models.MustParseAddress("AA:BB:CC:DD:EE:0B")
)

type routerFixture struct {
	router    *Router
	backend   *MockBackend
	renderers map[models.Address]*fakeRenderer
}

func newRouterFixture(t *testing.T, stream *fakeStream, addrs ...models.Address) *routerFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)

	if stream != nil {
		backend.EXPECT().OpenLoopback(gomock.Any(), gomock.Any()).Return(stream, nil).AnyTimes()
	}

	f := &routerFixture{
		router:    NewRouter(backend, DefaultFormat(), time.Millisecond, nil, nil),
		backend:   backend,
		renderers: make(map[models.Address]*fakeRenderer),
	}

	for _, addr := range addrs {
		r := &fakeRenderer{channels: 2}
		f.renderers[addr] = r
		endpoint := "bluez_sink." + addr.PathComponent() + ".a2dp_sink"

		backend.EXPECT().ResolveEndpoint(gomock.Any(), addr).Return(endpoint, nil)
		backend.EXPECT().NewRenderer(gomock.Any(), endpoint, DefaultFormat()).Return(r, nil)
	}

	t.Cleanup(func() { _ = f.router.Close() })

	return f
}

func TestRouterTwoSinksReceiveEveryFrame(t *testing.T) {
	const frames = 480

	stream := &fakeStream{frameBytes: testFrameBytes, packets: [][]byte{packet(frames)}}
	f := newRouterFixture(t, stream, sinkA, sinkB)
	ctx := context.Background()

	require.NoError(t, f.router.RegisterSink(ctx, sinkA))
	require.NoError(t, f.router.RegisterSink(ctx, sinkB))
	require.NoError(t, f.router.Start(ctx))

	require.Eventually(t, func() bool { return stream.Released() == 1 }, 2*time.Second, time.Millisecond)
	f.router.Stop()

	assert.Equal(t, int64(frames), f.renderers[sinkA].frames.Load())
	assert.Equal(t, int64(frames), f.renderers[sinkB].frames.Load())

	sinks := f.router.Sinks()
	require.Len(t, sinks, 2)
	assert.Equal(t, uint64(frames), sinks[0].Frames)
	assert.Equal(t, "bluez_sink.AA_BB_CC_DD_EE_0A.a2dp_sink", sinks[0].Endpoint)
}

func TestRouterUnregisterMidStream(t *testing.T) {
	stream := &fakeStream{frameBytes: testFrameBytes, endless: packet(16)}
	f := newRouterFixture(t, stream, sinkA, sinkB)
	ctx := context.Background()

	require.NoError(t, f.router.RegisterSink(ctx, sinkA))
	require.NoError(t, f.router.RegisterSink(ctx, sinkB))
	require.NoError(t, f.router.Start(ctx))

	a, b := f.renderers[sinkA], f.renderers[sinkB]

	require.Eventually(t, func() bool { return b.packets.Load() > 3 }, 2*time.Second, time.Millisecond)

	f.router.UnregisterSink(sinkB)
	frozen := b.frames.Load()
	before := a.packets.Load()

	require.Eventually(t, func() bool { return a.packets.Load() > before+10 }, 2*time.Second, time.Millisecond)
	f.router.Stop()

	assert.Equal(t, frozen, b.frames.Load(), "removed sink gets nothing more")
	assert.Zero(t, b.violations.Load(), "removed sink was fed after close")
	assert.True(t, b.closed.Load())
	assert.Equal(t, a.frames.Load(), a.packets.Load()*16, "only whole packets are delivered")
	assert.Equal(t, b.frames.Load(), b.packets.Load()*16)

	f.router.UnregisterSink(sinkB)
}

func TestRouterSlowSinkDoesNotStarveOthers(t *testing.T) {
	stream := &fakeStream{frameBytes: testFrameBytes, packets: [][]byte{packet(8), packet(8), packet(8)}}
	f := newRouterFixture(t, stream, sinkA, sinkB)
	ctx := context.Background()

	f.renderers[sinkB].busy.Store(true)

	var (
		mu     sync.Mutex
		failed []models.Address
	)

	f.router.OnSinkError(func(addr models.Address, err error) {
		assert.ErrorIs(t, err, ErrSinkBusy)
		mu.Lock()
		failed = append(failed, addr)
		mu.Unlock()
	})

	require.NoError(t, f.router.RegisterSink(ctx, sinkA))
	require.NoError(t, f.router.RegisterSink(ctx, sinkB))
	require.NoError(t, f.router.Start(ctx))

	require.Eventually(t, func() bool { return stream.Released() == 3 }, 2*time.Second, time.Millisecond)
	f.router.Stop()

	assert.Equal(t, int64(24), f.renderers[sinkA].frames.Load())
	assert.Zero(t, f.renderers[sinkB].frames.Load())

	mu.Lock()
	assert.Equal(t, []models.Address{sinkB, sinkB, sinkB}, failed)
	mu.Unlock()

	for _, s := range f.router.Sinks() {
		if s.Address == sinkB {
			assert.Equal(t, uint64(3), s.Failures)
		}
	}
}

func TestRouterRegisterSinkFailures(t *testing.T) {
	t.Run("unresolvable address", func(t *testing.T) {
		f := newRouterFixture(t, nil)
		f.backend.EXPECT().ResolveEndpoint(gomock.Any(), sinkA).Return("", models.ErrSinkResolutionFailed)

		err := f.router.RegisterSink(context.Background(), sinkA)
		require.ErrorIs(t, err, models.ErrSinkResolutionFailed)
		assert.Equal(t, models.KindSinkResolutionFailed, models.KindOf(err))
		assert.Empty(t, f.router.Sinks())
	})

	t.Run("renderer init failure", func(t *testing.T) {
		f := newRouterFixture(t, nil)
		f.backend.EXPECT().ResolveEndpoint(gomock.Any(), sinkA).Return("bluez_output.AA_BB_CC_DD_EE_0A.1", nil)
		f.backend.EXPECT().NewRenderer(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("pacat exited"))

		err := f.router.RegisterSink(context.Background(), sinkA)
		assert.Equal(t, models.KindAudioInitFailed, models.KindOf(err))
		assert.Empty(t, f.router.Sinks())
	})
}

func TestRouterRegisterTwiceAndChannelCount(t *testing.T) {
	f := newRouterFixture(t, nil, sinkA)
	ctx := context.Background()

	require.NoError(t, f.router.RegisterSink(ctx, sinkA))
	require.NoError(t, f.router.RegisterSink(ctx, sinkA), "second registration does not resolve again")

	n, err := f.router.ChannelCount(sinkA)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.router.ChannelCount(sinkB)
	require.ErrorIs(t, err, models.ErrDeviceNotFound)

	f.router.UnregisterSink(sinkB)
	require.NoError(t, f.router.Close())
	assert.True(t, f.renderers[sinkA].closed.Load())
	assert.Empty(t, f.router.Sinks())
}
