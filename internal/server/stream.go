package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mooveapp/auctiond/internal/services"
	"github.com/mooveapp/auctiond/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is consumed by a browser front end on another origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamEvent is a push frame on /api/stream.
type streamEvent struct {
	Type    string       `json:"type"` // "snapshot" | "bid"
	Auction *auctionJSON `json:"auction,omitempty"`
	Stale   bool         `json:"stale,omitempty"`
}

// Hub fans auction snapshot changes out to connected WebSocket clients.
type Hub struct {
	auctions *services.AuctionService

	mu      sync.Mutex
	clients map[*websocket.Conn]chan streamEvent
}

// NewHub creates the hub.
func NewHub(auctions *services.AuctionService) *Hub {
	return &Hub{
		auctions: auctions,
		clients:  make(map[*websocket.Conn]chan streamEvent),
	}
}

// Run watches the auction snapshot and broadcasts changes until ctx ends.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastAuctionID uint64
	var lastHighest string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, info := h.auctions.Current()
			if !info.Ok {
				continue
			}
			highest := weiString(snap.CurrentHighestBid)
			if snap.AuctionID == lastAuctionID && highest == lastHighest {
				continue
			}

			event := streamEvent{Type: "snapshot", Stale: info.Stale}
			if snap.AuctionID == lastAuctionID && highest != lastHighest && lastAuctionID != 0 {
				// same auction, new highest bid
				event.Type = "bid"
			}
			aj := toAuctionJSON(snap)
			event.Auction = &aj

			lastAuctionID = snap.AuctionID
			lastHighest = highest
			h.broadcast(event)
		}
	}
}

func (h *Hub) broadcast(event streamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- event:
		default:
			// slow consumer, drop the connection rather than block the hub
			logger.Warnf("WebSocket client too slow, dropping: %s", conn.RemoteAddr())
			close(ch)
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) chan streamEvent {
	ch := make(chan streamEvent, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

// handleStream upgrades the request and streams snapshot/bid events.
func (h *Hub) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}

	ch := h.register(conn)
	defer h.unregister(conn)

	// initial snapshot so clients render without waiting for a change
	if snap, info := h.auctions.Current(); info.Ok {
		aj := toAuctionJSON(snap)
		if err := conn.WriteJSON(streamEvent{Type: "snapshot", Auction: &aj, Stale: info.Stale}); err != nil {
			return
		}
	}

	// discard inbound frames, detect close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister(conn)
				return
			}
		}
	}()

	for event := range ch {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}
