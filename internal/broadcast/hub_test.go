package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/internal/domain"
)

// testHub sets up a started Hub behind a test HTTP server and returns a
// dialer for subscriber connections.
func testHub(t *testing.T) (*Hub, func() *ws.Conn) {
	t.Helper()

	hub := NewHub(clockwork.NewRealClock())
	hub.Start()
	t.Cleanup(hub.Stop)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go func() { _ = hub.HandleConnection(conn) }()
	}))
	t.Cleanup(server.Close)

	dial := func() *ws.Conn {
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}

	return hub, dial
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", want, hub.ClientCount())
}

func readEnvelope(t *testing.T, conn *ws.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHubDeliversPublishedEvents(t *testing.T) {
	hub, dial := testHub(t)
	conn := dial()
	waitForClients(t, hub, 1)

	hub.Publish(domain.EventTotalCount, domain.SentimentCounts{Positive: 3, Total: 3})

	env := readEnvelope(t, conn)
	assert.Equal(t, domain.EventTotalCount, env.Event)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var counts domain.SentimentCounts
	require.NoError(t, json.Unmarshal(data, &counts))
	assert.Equal(t, 3, counts.Positive)
	assert.Equal(t, 3, counts.Total)
}

func TestHubSubscriptionFilter(t *testing.T) {
	hub, dial := testHub(t)
	conn := dial()
	waitForClients(t, hub, 1)

	sub, err := json.Marshal(clientMessage{Action: "subscribe", Events: []string{domain.EventWeightedTotal}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, sub))

	// Give the hub a moment to process the subscription.
	time.Sleep(100 * time.Millisecond)

	hub.Publish(domain.EventTotalCount, domain.SentimentCounts{})
	hub.Publish(domain.EventWeightedTotal, domain.WeightedBreakdown{TotalAnalyzedComments: 7})

	env := readEnvelope(t, conn)
	assert.Equal(t, domain.EventWeightedTotal, env.Event)
}

func TestHubSubscribeDropsUnknownEventNames(t *testing.T) {
	hub, dial := testHub(t)
	conn := dial()
	waitForClients(t, hub, 1)

	sub, err := json.Marshal(clientMessage{
		Action: "subscribe",
		Events: []string{"no-such-event", domain.EventWeightedTotal},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, sub))

	time.Sleep(100 * time.Millisecond)

	hub.Publish(domain.EventTotalCount, domain.SentimentCounts{})
	hub.Publish(domain.EventWeightedTotal, domain.WeightedBreakdown{TotalAnalyzedComments: 2})

	env := readEnvelope(t, conn)
	assert.Equal(t, domain.EventWeightedTotal, env.Event)
}

func TestHubSubscribeWithOnlyUnknownNamesKeepsCurrentSubscription(t *testing.T) {
	hub, dial := testHub(t)
	conn := dial()
	waitForClients(t, hub, 1)

	sub, err := json.Marshal(clientMessage{Action: "subscribe", Events: []string{"bogus"}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, sub))

	// Still subscribed to everything.
	time.Sleep(100 * time.Millisecond)
	hub.Publish(domain.EventTotalCount, domain.SentimentCounts{})
	env := readEnvelope(t, conn)
	assert.Equal(t, domain.EventTotalCount, env.Event)
}

func TestHubRefreshActionInvokesCallback(t *testing.T) {
	refreshed := make(chan string, 1)

	hub := NewHub(clockwork.NewRealClock())
	hub.OnRefresh = func(eventName string) { refreshed <- eventName }
	hub.Start()
	t.Cleanup(hub.Stop)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go func() { _ = hub.HandleConnection(conn) }()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	msg, err := json.Marshal(clientMessage{Action: domain.ActionRefresh, EventName: domain.EventNormalCount})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, msg))

	select {
	case name := <-refreshed:
		assert.Equal(t, domain.EventNormalCount, name)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh callback not invoked")
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub, dial := testHub(t)
	conn := dial()
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}

func TestHubMalformedClientMessageIsIgnored(t *testing.T) {
	hub, dial := testHub(t)
	conn := dial()
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("not json")))

	// The connection stays up and still receives broadcasts.
	time.Sleep(100 * time.Millisecond)
	hub.Publish(domain.EventTotalCount, domain.SentimentCounts{})
	env := readEnvelope(t, conn)
	assert.Equal(t, domain.EventTotalCount, env.Event)
}
