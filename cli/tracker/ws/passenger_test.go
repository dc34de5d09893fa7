package ws

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/daniil11ru/bustrack/cli/tracker/cache"
	"github.com/daniil11ru/bustrack/cli/tracker/domain"
	"github.com/daniil11ru/bustrack/cli/tracker/hub"
	"github.com/daniil11ru/bustrack/cli/tracker/types"
)

type passengerStack struct {
	positions *cache.PositionCache
	router    *hub.Hub
	report    *domain.ReportPosition
	server    *httptest.Server
}

func newPassengerStack(t *testing.T) *passengerStack {
	t.Helper()
	log.SetOutput(io.Discard)

	positions := cache.New()
	router := hub.New(positions)
	gw := &PassengerGateway{Router: router}

	server := httptest.NewServer(http.HandlerFunc(gw.Handle))
	t.Cleanup(server.Close)

	return &passengerStack{
		positions: positions,
		router:    router,
		report:    domain.NewReportPosition(positions, router, nil),
		server:    server,
	}
}

func (s *passengerStack) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("passenger dial failed: %v", err)
	}
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) types.LocationUpdate {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var u types.LocationUpdate
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("failed to read update: %v", err)
	}
	return u
}

func TestPassengerReplayOnSubscribe(t *testing.T) {
	stack := newPassengerStack(t)

	_, err := stack.report.Run(domain.Report{BusID: "bus101", Latitude: 28.6139, Longitude: 77.2090, Timestamp: 1700000000000})
	if !assert.NoError(t, err) {
		return
	}

	conn := stack.dial(t)
	defer conn.Close()

	assert.NoError(t, conn.WriteJSON(map[string]string{"event": "subscribe", "busId": "bus101"}))

	replay := readUpdate(t, conn)
	assert.Equal(t, types.EventLocationUpdate, replay.Event)
	assert.Equal(t, "bus101", replay.BusID)
	assert.Equal(t, 28.6139, replay.Latitude)
	assert.Equal(t, 77.2090, replay.Longitude)
	assert.Equal(t, int64(1700000000000), replay.Timestamp)
}

func TestPassengerDoubleSubscribeNoDuplicateReplay(t *testing.T) {
	stack := newPassengerStack(t)

	_, err := stack.report.Run(domain.Report{BusID: "bus101", Latitude: 1, Longitude: 2, Timestamp: 3})
	if !assert.NoError(t, err) {
		return
	}

	conn := stack.dial(t)
	defer conn.Close()

	assert.NoError(t, conn.WriteJSON(map[string]string{"event": "subscribe", "busId": "bus101"}))
	assert.NoError(t, conn.WriteJSON(map[string]string{"event": "subscribe", "busId": "bus101"}))

	first := readUpdate(t, conn)
	assert.Equal(t, 1.0, first.Latitude, "first message is the single replay")

	// Publish a fresh update: the next message must be it, not a second
	// replay queued by the duplicate subscribe.
	_, err = stack.report.Run(domain.Report{BusID: "bus101", Latitude: 30, Longitude: 40, Timestamp: 5})
	assert.NoError(t, err)

	second := readUpdate(t, conn)
	assert.Equal(t, 30.0, second.Latitude)
}

func TestPassengerLiveUpdates(t *testing.T) {
	stack := newPassengerStack(t)

	conn := stack.dial(t)
	defer conn.Close()

	// Pre-seeding bus202 lets the replay confirm the subscribe was
	// processed before the test publishes anything else.
	_, err := stack.report.Run(domain.Report{BusID: "bus202", Latitude: 10, Longitude: 10, Timestamp: 1})
	assert.NoError(t, err)

	assert.NoError(t, conn.WriteJSON(map[string]string{"event": "subscribe", "busId": "bus202"}))
	replay := readUpdate(t, conn)
	assert.Equal(t, 10.0, replay.Latitude)

	for i := 1; i <= 3; i++ {
		_, err := stack.report.Run(domain.Report{BusID: "bus202", Latitude: float64(10 + i), Longitude: 10, Timestamp: int64(i)})
		assert.NoError(t, err)
	}

	for i := 1; i <= 3; i++ {
		u := readUpdate(t, conn)
		assert.Equal(t, float64(10+i), u.Latitude, "updates arrive in publish order")
	}
}

func TestPassengerUnsubscribe(t *testing.T) {
	stack := newPassengerStack(t)

	_, err := stack.report.Run(domain.Report{BusID: "busB", Latitude: 10, Longitude: 10, Timestamp: 1})
	assert.NoError(t, err)

	conn := stack.dial(t)
	defer conn.Close()

	// Control messages are handled in order by the connection's read
	// loop, so the busB replay below also confirms the earlier
	// subscribe/unsubscribe pair took effect.
	assert.NoError(t, conn.WriteJSON(map[string]string{"event": "subscribe", "busId": "busA"}))
	assert.NoError(t, conn.WriteJSON(map[string]string{"event": "unsubscribe", "busId": "busA"}))
	assert.NoError(t, conn.WriteJSON(map[string]string{"event": "subscribe", "busId": "busB"}))

	replay := readUpdate(t, conn)
	assert.Equal(t, "busB", replay.BusID)

	_, err = stack.report.Run(domain.Report{BusID: "busA", Latitude: 5, Longitude: 5, Timestamp: 2})
	assert.NoError(t, err)
	_, err = stack.report.Run(domain.Report{BusID: "busB", Latitude: 20, Longitude: 20, Timestamp: 3})
	assert.NoError(t, err)

	next := readUpdate(t, conn)
	assert.Equal(t, "busB", next.BusID, "no events for the unsubscribed bus")
	assert.Equal(t, 20.0, next.Latitude)
}

func TestPassengerClientPushDoesNotBlock(t *testing.T) {
	client := &PassengerClient{
		send: make(chan []byte, 1),
		quit: make(chan struct{}),
	}

	assert.NoError(t, client.Push([]byte("one")))
	// Buffer full and nobody draining: the push fails instead of
	// blocking, and the hub will evict the client.
	assert.ErrorIs(t, client.Push([]byte("two")), errClientGone)

	client.shutdown()
	assert.ErrorIs(t, client.Push([]byte("three")), errClientGone)
}
