package empire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/event"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextEvent(t *testing.T, s *Socket) event.Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func readText(t *testing.T, conn *websocket.Conn) string {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Errorf("server read failed: %v", err)
		return ""
	}
	return string(msg)
}

func TestSocket_HandshakeAndEvents(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"s1","pingInterval":25000,"pingTimeout":20000}`))
		assert.Equal(t, "40", readText(t, conn))
		conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"n1"}`))

		identify := readText(t, conn)
		assert.True(t, strings.HasPrefix(identify, `42["identify",`), identify)
		var args []json.RawMessage
		if assert.NoError(t, json.Unmarshal([]byte(identify[2:]), &args)) && assert.Len(t, args, 2) {
			assert.JSONEq(t, `{"uid":1234,"model":{"id":1234},"authorizationToken":"tok","signature":"sig"}`, string(args[1]))
		}

		conn.WriteMessage(websocket.TextMessage, []byte("2"))
		assert.Equal(t, "3", readText(t, conn))

		conn.WriteMessage(websocket.TextMessage, []byte(`42["init",{"authenticated":true,"id":1234}]`))
		assert.Equal(t, `42["p2p/new-items/subscribe",1]`, readText(t, conn))

		conn.WriteMessage(websocket.TextMessage, []byte(`42["p2p_updated_item","{\"id\":7,\"market_name\":\"AK\",\"market_value\":900}"]`))
		conn.WriteMessage(websocket.TextMessage, []byte(`42["trade_status",{"type":"deposit","data":{"id":7,"status_text":"Processing","items":[{"asset_id":1,"market_name":"AK","market_value":9.5}]}}]`))

		<-done
	}))
	defer srv.Close()
	defer close(done)

	s := NewSocket(testAccount(), wsURL(srv))
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	require.IsType(t, &event.Connected{}, nextEvent(t, s))
	assert.True(t, s.Connected())

	require.NoError(t, s.Identify(&domain.Meta{
		UserID:          1234,
		User:            json.RawMessage(`{"id":1234}`),
		SocketToken:     "tok",
		SocketSignature: "sig",
	}))

	auth, ok := nextEvent(t, s).(*event.Authenticated)
	require.True(t, ok)
	assert.EqualValues(t, 1234, auth.UserID)

	require.NoError(t, s.Subscribe())

	pu, ok := nextEvent(t, s).(*event.PriceUpdate)
	require.True(t, ok)
	assert.EqualValues(t, 900, pu.MarketValue)

	ts, ok := nextEvent(t, s).(*event.TradeStatus)
	require.True(t, ok)
	assert.Equal(t, domain.StatusProcessing, ts.StatusText)
	assert.EqualValues(t, 950, ts.Items[0].MarketValue)
}

func TestSocket_ReconnectsAfterDrop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"s","pingInterval":25000,"pingTimeout":20000}`))
		conn.ReadMessage()
		conn.WriteMessage(websocket.TextMessage, []byte(`40`))
		conn.WriteMessage(websocket.TextMessage, []byte(`41`))
		conn.Close()
	}))
	defer srv.Close()

	s := NewSocket(testAccount(), wsURL(srv))
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	require.IsType(t, &event.Connected{}, nextEvent(t, s))
	disc, ok := nextEvent(t, s).(*event.Disconnected)
	require.True(t, ok)
	assert.Error(t, disc.Err)
	require.IsType(t, &event.Connected{}, nextEvent(t, s), "socket must reconnect on its own")
}

func TestSocket_WriteWithoutConnection(t *testing.T) {
	s := NewSocket(testAccount(), "ws://127.0.0.1:1")
	assert.ErrorIs(t, s.Subscribe(), domain.ErrNotConnected)
	assert.False(t, s.Connected())
	s.Disconnect()
}
