package ws

import (
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client is one device's stream connection. Writes are serialized because a
// websocket connection supports a single concurrent writer.
type Client struct {
	DeviceID    string
	RemoteAddr  string
	ConnectedAt time.Time

	conn     *websocket.Conn
	writeMu  sync.Mutex
	mu       sync.Mutex
	lastSeen time.Time
	messages int64
}

func NewClient(deviceID, remoteAddr string, conn *websocket.Conn) *Client {
	now := time.Now().UTC()
	return &Client{DeviceID: deviceID, RemoteAddr: remoteAddr, ConnectedAt: now, lastSeen: now, conn: conn}
}

// WriteJSON sends v as one text frame.
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Touch records an inbound message.
func (c *Client) Touch() {
	c.mu.Lock()
	c.lastSeen = time.Now().UTC()
	c.messages++
	c.mu.Unlock()
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced"), time.Now().Add(writeWait))
	return c.conn.Close()
}

// ConnectionInfo describes a live connection.
type ConnectionInfo struct {
	DeviceID    string    `json:"device_id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
	Messages    int64     `json:"messages"`
}

func (c *Client) Info() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{
		DeviceID:    c.DeviceID,
		RemoteAddr:  c.RemoteAddr,
		ConnectedAt: c.ConnectedAt,
		LastSeen:    c.lastSeen,
		Messages:    c.messages,
	}
}

// Manager keeps track of active device stream connections.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client // deviceID -> client
	onCount func(int)
}

// NewManager returns an empty manager. onCount, if set, is called with the
// number of connections after every change.
func NewManager(onCount func(int)) *Manager {
	return &Manager{clients: make(map[string]*Client), onCount: onCount}
}

// Register adds a device connection, closing any connection it replaces.
func (m *Manager) Register(client *Client) {
	m.mu.Lock()
	old, ok := m.clients[client.DeviceID]
	m.clients[client.DeviceID] = client
	n := len(m.clients)
	m.mu.Unlock()

	if ok && old != client {
		_ = old.Close()
	}
	m.notify(n)
}

// Unregister removes client if it is still the device's current connection.
func (m *Manager) Unregister(client *Client) {
	m.mu.Lock()
	cur, ok := m.clients[client.DeviceID]
	if ok && cur == client {
		delete(m.clients, client.DeviceID)
	}
	n := len(m.clients)
	m.mu.Unlock()

	_ = client.conn.Close()
	m.notify(n)
}

// IsConnected reports whether deviceID has a live stream connection.
func (m *Manager) IsConnected(deviceID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clients[deviceID]
	return ok
}

// List returns the live connections ordered by device ID.
func (m *Manager) List() []ConnectionInfo {
	m.mu.RLock()
	out := make([]ConnectionInfo, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c.Info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

func (m *Manager) notify(n int) {
	if m.onCount != nil {
		m.onCount(n)
	}
}
