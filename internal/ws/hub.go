package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/goroutine"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
)

// Hub управляет WebSocket клиентами и доставляет им события по user_id.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// envelope — контракт WebSocket API: "type" содержит имя события, "data" — полезную нагрузку.
type envelope struct {
	Type entity.EventType   `json:"type"`
	Data entity.DomainEvent `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run крутит главный цикл хаба и завершается с отменой ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish реализует repository.EventPublisher. Не блокирует: при переполнении
// очереди событие отбрасывается, транзакция к этому моменту уже зафиксирована.
func (h *Hub) Publish(_ context.Context, events ...entity.DomainEvent) {
	for _, ev := range events {
		if ev.UserID == uuid.Nil {
			continue
		}
		raw, err := json.Marshal(envelope{Type: ev.Type, Data: ev})
		if err != nil {
			logger.Log.WithError(err).Error("ws: не удалось сериализовать событие")
			continue
		}
		select {
		case h.broadcast <- message{userID: ev.UserID, payload: raw}:
		default:
			logger.Log.WithFields(logrus.Fields{
				"user_id": ev.UserID,
				"type":    ev.Type,
			}).Warn("ws: очередь переполнена, событие отброшено")
		}
	}
}

// ClientCount возвращает число подключений пользователя.
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			client.closeSend()
		}
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.clients {
		for c := range clients {
			c.closeSend()
		}
		delete(h.clients, userID)
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент: отключаем, не задерживая остальных.
			c := client
			goroutine.SafeGo("ws-close-slow-client", c.Close)
		}
	}
}
