package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

// dial поднимает сервер, который регистрирует клиента за userID, и подключается к нему.
func dial(t *testing.T, hub *Hub, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, hub, userID)
		hub.Register(client)
		client.Run(context.Background())
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount(userID) > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_DeliversOnlyToAddressee(t *testing.T) {
	hub, _ := startHub(t)
	alice, bob := uuid.New(), uuid.New()
	aliceConn := dial(t, hub, alice)
	bobConn := dial(t, hub, bob)

	reportID := uuid.New()
	hub.Publish(context.Background(),
		entity.DomainEvent{Type: entity.EventReportVerified, UserID: uuid.Nil},
		entity.DomainEvent{Type: entity.EventReportClaimed, UserID: alice, ReportID: &reportID, Status: valueobject.ReportStatusClaimed},
	)

	_ = aliceConn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := aliceConn.ReadMessage()
	require.NoError(t, err)

	var got envelope
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, entity.EventReportClaimed, got.Type)
	assert.Equal(t, alice, got.Data.UserID)
	assert.Equal(t, reportID, *got.Data.ReportID)

	_ = bobConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = bobConn.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's events")
}

func TestHub_SeveralConnectionsPerUser(t *testing.T) {
	hub, _ := startHub(t)
	user := uuid.New()
	first := dial(t, hub, user)
	second := dial(t, hub, user)
	require.Eventually(t, func() bool { return hub.ClientCount(user) == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), entity.DomainEvent{Type: entity.EventPointsAwarded, UserID: user, Points: 35})

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"points":35`)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, _ := startHub(t)
	user := uuid.New()
	conn := dial(t, hub, user)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount(user) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	user := uuid.New()
	conn := dial(t, hub, user)

	cancel()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return hub.ClientCount(user) == 0 }, time.Second, 10*time.Millisecond)

	// После остановки хаба регистрация и публикация не блокируются.
	hub.Unregister(&Client{hub: hub, userID: user})
	hub.Publish(context.Background(), entity.DomainEvent{Type: entity.EventReportClaimed, UserID: user})
}
