package wsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/mohamedkhairy/market-intel/internal/config"
	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

const maxClientMessageSize = 4096

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_gateway_connections_active",
		Help: "Number of open WebSocket connections",
	})

	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_gateway_connections_total",
		Help: "Total number of accepted WebSocket connections",
	})

	snapshotsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_gateway_snapshots_received_total",
			Help: "Total number of snapshots received from Redis",
		},
		[]string{"asset_class"},
	)

	messagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_gateway_messages_dropped_total",
		Help: "Total number of messages dropped because a client send buffer was full",
	})
)

// Subscription is the part of *redis.PubSub the hub reads from
type Subscription interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
}

// SnapshotSource returns the latest snapshot of an asset class. The hub
// uses it to send new subscribers the current state.
type SnapshotSource interface {
	Latest(ctx context.Context, class models.AssetClass) (models.MarketSnapshot, bool, error)
}

// HubStats holds statistics about the hub
type HubStats struct {
	ConnectionsTotal  int64     `json:"connections_total"`
	ConnectionsActive int64     `json:"connections_active"`
	SnapshotsReceived int64     `json:"snapshots_received"`
	MessagesQueued    int64     `json:"messages_queued"`
	MessagesDropped   int64     `json:"messages_dropped"`
	LastSnapshotTime  time.Time `json:"last_snapshot_time"`
}

// Hub fans snapshots published on Redis out to WebSocket clients
type Hub struct {
	config        config.WSGatewayConfig
	registry      *ConnectionRegistry
	auth          *AuthManager
	latest        SnapshotSource
	channelPrefix string
	upgrader      websocket.Upgrader

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	connectionsTotal  atomic.Int64
	snapshotsReceived atomic.Int64
	messagesQueued    atomic.Int64
	messagesDropped   atomic.Int64
	lastSnapshot      atomic.Int64 // unix nanos
}

// NewHub creates a new hub. channelPrefix is stripped from Redis channel
// names to find the asset class. latest may be nil.
func NewHub(cfg config.WSGatewayConfig, auth *AuthManager, channelPrefix string, latest SnapshotSource) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if auth == nil {
		auth = NewAuthManager("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:        cfg,
		registry:      NewConnectionRegistry(),
		auth:          auth,
		latest:        latest,
		channelPrefix: channelPrefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts consuming snapshots from sub and monitoring connections
func (h *Hub) Start(sub Subscription) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	logger.Info("Starting WebSocket hub",
		logger.String("channel_prefix", h.channelPrefix),
		logger.Bool("auth_enabled", h.auth.Enabled()),
	)

	h.wg.Add(2)
	go h.consume(sub)
	go h.monitorConnections()

	return nil
}

// Stop closes every connection and waits for the hub goroutines
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	logger.Info("Stopping WebSocket hub")
	h.cancel()
	for _, conn := range h.registry.GetAll() {
		h.Unregister(conn)
	}
	h.wg.Wait()
	logger.Info("WebSocket hub stopped")
}

// IsRunning reports whether the hub has been started and not stopped
func (h *Hub) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// ServeWS authenticates and upgrades a client request. Clients may
// subscribe up front with ?asset_classes=crypto,forex.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authenticate(r)
	if err != nil {
		logger.Debug("Rejected WebSocket connection",
			logger.String("remote_addr", r.RemoteAddr),
			logger.ErrorField(err),
		)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var initial []models.AssetClass
	if v := r.URL.Query().Get("asset_classes"); v != "" {
		msg := ClientMessage{AssetClasses: strings.Split(v, ",")}
		initial, err = msg.classes()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if h.config.MaxConnections > 0 && h.registry.Count() >= h.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket upgrade failed", logger.ErrorField(err))
		return
	}

	conn := NewConnection(uuid.NewString(), userID, ws, h.config.SendBufferSize)
	for _, class := range initial {
		conn.Subscribe(class)
	}

	if !h.Register(conn) {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "gateway unavailable"),
			time.Now().Add(h.config.WriteTimeout))
		conn.Close()
		return
	}

	h.replayLatest(conn, initial)
}

// Register registers a connection and starts its pumps. It returns false
// when the hub is not running or the connection limit is reached.
func (h *Hub) Register(conn *Connection) bool {
	h.mu.Lock()
	if !h.running || !h.registry.Add(conn, h.config.MaxConnections) {
		h.mu.Unlock()
		return false
	}
	// Stop waits on wg only after clearing running under mu
	h.wg.Add(2)
	h.connectionsTotal.Add(1)
	connectionsTotal.Inc()
	connectionsActive.Inc()
	h.mu.Unlock()

	logger.Info("Connection registered",
		logger.String("connection_id", conn.ID),
		logger.String("user_id", conn.UserID),
		logger.Int("total_connections", h.registry.Count()),
	)

	go h.writePump(conn)
	go h.readPump(conn)
	return true
}

// Unregister removes and closes a connection. It is safe to call more than
// once.
func (h *Hub) Unregister(conn *Connection) {
	if h.registry.Remove(conn.ID) {
		connectionsActive.Dec()
		logger.Info("Connection unregistered",
			logger.String("connection_id", conn.ID),
			logger.String("user_id", conn.UserID),
			logger.Int("total_connections", h.registry.Count()),
		)
	}
	conn.Close()
}

// Broadcast queues an encoded snapshot for every connection that should
// receive class and returns how many were queued
func (h *Hub) Broadcast(class models.AssetClass, snapshot []byte) int {
	data, err := snapshotMessage(class, snapshot)
	if err != nil {
		logger.Warn("Dropping malformed snapshot",
			logger.String("asset_class", string(class)),
			logger.ErrorField(err),
		)
		return 0
	}

	sent, dropped := 0, 0
	for _, conn := range h.registry.GetAll() {
		if !conn.ShouldReceive(class) {
			continue
		}
		if conn.Enqueue(data) {
			sent++
		} else {
			dropped++
		}
	}

	h.messagesQueued.Add(int64(sent))
	if dropped > 0 {
		h.messagesDropped.Add(int64(dropped))
		messagesDropped.Add(float64(dropped))
	}

	logger.Debug("Broadcast snapshot",
		logger.String("asset_class", string(class)),
		logger.Int("sent", sent),
		logger.Int("dropped", dropped),
	)
	return sent
}

// consume reads snapshots from Redis until the hub stops
func (h *Hub) consume(sub Subscription) {
	defer h.wg.Done()

	messages := sub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-messages:
			if !ok {
				logger.Warn("Snapshot subscription closed")
				return
			}

			class, err := models.ParseAssetClass(strings.TrimPrefix(msg.Channel, h.channelPrefix))
			if err != nil {
				logger.Warn("Ignoring message on unexpected channel",
					logger.String("channel", msg.Channel),
				)
				continue
			}

			h.snapshotsReceived.Add(1)
			h.lastSnapshot.Store(time.Now().UnixNano())
			snapshotsReceived.WithLabelValues(string(class)).Inc()
			h.Broadcast(class, []byte(msg.Payload))
		}
	}
}

// replayLatest sends the stored snapshot of each class to one connection
func (h *Hub) replayLatest(conn *Connection, classes []models.AssetClass) {
	if h.latest == nil {
		return
	}
	for _, class := range classes {
		snapshot, ok, err := h.latest.Latest(h.ctx, class)
		if err != nil {
			logger.Debug("Failed to load latest snapshot",
				logger.String("asset_class", string(class)),
				logger.ErrorField(err),
			)
			continue
		}
		if !ok {
			continue
		}
		payload, err := json.Marshal(snapshot)
		if err != nil {
			continue
		}
		data, err := snapshotMessage(class, payload)
		if err != nil {
			continue
		}
		if conn.Enqueue(data) {
			h.messagesQueued.Add(1)
		}
	}
}

// writePump writes queued messages and pings to the connection. It is the
// only goroutine writing to the socket.
func (h *Hub) writePump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-conn.Done():
			return

		case message := <-conn.send:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles client messages until the connection fails
func (h *Hub) readPump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	conn.Conn.SetReadLimit(maxClientMessageSize)
	conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.UpdateLastPong()
		conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket error",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID),
				)
			}
			return
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			conn.SendError("invalid_message", "failed to parse message")
			continue
		}

		subscribed, err := conn.HandleClientMessage(&clientMsg)
		if err != nil {
			logger.Debug("Failed to handle client message",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
		}
		h.replayLatest(conn, subscribed)
	}
}

// monitorConnections removes connections that stopped answering pings
func (h *Hub) monitorConnections() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			staleThreshold := h.config.ReadTimeout * 2
			now := time.Now()
			for _, conn := range h.registry.GetAll() {
				if idle := now.Sub(conn.GetLastPong()); idle > staleThreshold {
					logger.Info("Removing stale connection",
						logger.String("connection_id", conn.ID),
						logger.String("user_id", conn.UserID),
						logger.Duration("idle_time", idle),
					)
					h.Unregister(conn)
				}
			}
		}
	}
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	stats := HubStats{
		ConnectionsTotal:  h.connectionsTotal.Load(),
		ConnectionsActive: int64(h.registry.Count()),
		SnapshotsReceived: h.snapshotsReceived.Load(),
		MessagesQueued:    h.messagesQueued.Load(),
		MessagesDropped:   h.messagesDropped.Load(),
	}
	if ns := h.lastSnapshot.Load(); ns > 0 {
		stats.LastSnapshotTime = time.Unix(0, ns).UTC()
	}
	return stats
}
