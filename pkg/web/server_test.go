package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-simview/pkg/sensor"
	"github.com/teslashibe/go-simview/pkg/telemetry"
)

func newTestServer(t *testing.T, state *telemetry.State, addr string) *Server {
	t.Helper()
	s, err := NewServer(Config{
		Addr:      addr,
		Telemetry: state,
		Counters: func() map[string]sensor.Counters {
			return map[string]sensor.Counters{
				sensor.KindGNSS.String(): {Accepted: 2, Rejected: 1},
			}
		},
	})
	require.NoError(t, err)
	return s
}

func solidFrame(w, h int, v byte) telemetry.Frame {
	f := telemetry.NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func TestNewServerRequiresTelemetry(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestHandleTelemetryJSONOmitsAbsentFields(t *testing.T) {
	state := telemetry.NewState()
	state.UpdatePosition(telemetry.PositionReading{Altitude: 100, Latitude: 48.99, Longitude: 8.0})
	s := newTestServer(t, state, "")

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/telemetry", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Contains(t, raw, "position")
	assert.NotContains(t, raw, "frame")
	assert.NotContains(t, raw, "inertial")

	var doc Document
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Len(t, doc.Readouts, 3)
	assert.Equal(t, "Altitude: 100.0", doc.Readouts[0].Text)
	assert.Equal(t, "Longitude: 8.0", doc.Readouts[2].Text)
}

func TestHandleTelemetryCBOR(t *testing.T) {
	state := telemetry.NewState()
	state.UpdateFrame(solidFrame(4, 2, 9))
	state.UpdateInertial(telemetry.InertialReading{
		Accelerometer: telemetry.Vector3D{Z: telemetry.StandardGravity + 3},
		Gyroscope:     telemetry.Vector3D{X: 0.5},
		Compass:       1,
	})
	s := newTestServer(t, state, "")

	req := httptest.NewRequest("GET", "/api/telemetry", nil)
	req.Header.Set("Accept", MIMEApplicationCBOR)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, MIMEApplicationCBOR, resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, cbor.Unmarshal(body, &doc))
	require.NotNil(t, doc.Frame)
	assert.Equal(t, FrameInfo{Width: 4, Height: 2}, *doc.Frame)
	assert.Nil(t, doc.Position)
	require.NotNil(t, doc.Inertial)
	assert.InDelta(t, 3.0, doc.Inertial.Acceleration, 1e-9)
	assert.InDelta(t, 0.5, doc.Inertial.AngularSpeed, 1e-9)
	assert.InDelta(t, 1.0, doc.Inertial.Compass, 1e-9)
	assert.Len(t, doc.Readouts, 2)
}

func TestHandleStats(t *testing.T) {
	state := telemetry.NewState()
	state.UpdatePosition(telemetry.PositionReading{})
	state.UpdatePosition(telemetry.PositionReading{})
	s := newTestServer(t, state, "")

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/stats", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, uint64(2), stats.State.PositionUpdates)
	assert.Equal(t, sensor.Counters{Accepted: 2, Rejected: 1}, stats.Sensors["other.gnss"])
	assert.Equal(t, 0, stats.Clients["camera"])
}

func TestWebSocketRoutesRequireUpgrade(t *testing.T) {
	s := newTestServer(t, telemetry.NewState(), "")

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/camera", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestHandleFrameWithoutClientsQueuesNothing(t *testing.T) {
	s := newTestServer(t, telemetry.NewState(), "")

	s.HandleFrame(telemetry.Snapshot{}, solidFrame(2, 2, 0))

	assert.Nil(t, s.pending.Load())
	assert.Len(t, s.wake, 0)
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeJPEG(solidFrame(32, 16, 128), DefaultJPEGQuality)
	require.NoError(t, err)
	require.Greater(t, len(data), 4)
	assert.Equal(t, []byte{0xff, 0xd8}, data[:2])

	_, err = EncodeJPEG(telemetry.Frame{Width: 4, Height: 4, Pix: make([]byte, 3)}, DefaultJPEGQuality)
	assert.ErrorIs(t, err, telemetry.ErrInvalidFrame)
}

func TestDashboardStreams(t *testing.T) {
	state := telemetry.NewState()
	s := newTestServer(t, state, ":18192")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartAsync(ctx)
	time.Sleep(100 * time.Millisecond)

	camera, _, err := websocket.DefaultDialer.Dial("ws://localhost:18192/ws/camera", nil)
	require.NoError(t, err)
	defer camera.Close()
	readouts, _, err := websocket.DefaultDialer.Dial("ws://localhost:18192/ws/telemetry", nil)
	require.NoError(t, err)
	defer readouts.Close()

	require.Eventually(t, func() bool {
		return s.cameraHub.ClientCount() == 1 && s.telemetryHub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	pos := telemetry.PositionReading{Altitude: 12.5}
	s.HandleFrame(telemetry.Snapshot{Position: &pos}, solidFrame(16, 8, 200))

	readouts.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := readouts.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Readouts, 1)
	assert.Equal(t, "Altitude: 12.5", doc.Readouts[0].Text)

	camera.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err = camera.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, []byte{0xff, 0xd8}, data[:2])
	assert.Eventually(t, func() bool { return s.FramesSent() == 1 }, time.Second, 10*time.Millisecond)
}
