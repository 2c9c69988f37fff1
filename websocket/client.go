package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"aegis/models"
	"aegis/utils"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Buffer size for client send channel
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Surfaces connect from the device itself, not a browser origin
		return true
	},
}

// Client is one connected lock-screen surface. The surface renders, it never
// commands: inbound frames other than pings are discarded, widget taps travel
// over the HTTP bridge instead.
type Client struct {
	conn *websocket.Conn

	userID string

	connectionID string
	connectedAt  time.Time
	lastActivity time.Time
	surfaceKind  string

	// Buffered channel of outbound activity frames
	send chan models.LiveActivityState

	hub *Hub

	isActive      bool
	pingFailCount int
	done          chan struct{}
	closeOnce     sync.Once
}

// Upgrade promotes the HTTP request to a websocket connection and hands the
// surface to the hub. The caller has already authenticated userID.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub, userID string) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	client := &Client{
		conn:         conn,
		hub:          hub,
		userID:       userID,
		send:         make(chan models.LiveActivityState, sendBufferSize),
		connectionID: utils.GenerateUUID(),
		connectedAt:  time.Now(),
		lastActivity: time.Now(),
		surfaceKind:  r.Header.Get("X-Surface-Kind"),
		isActive:     true,
		done:         make(chan struct{}),
	}

	hub.register <- client
	return client, nil
}

func (c *Client) ReadPump() {
	defer c.cleanup()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastActivity = time.Now()
		c.pingFailCount = 0
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("Surface read error for user %s: %v", c.userID, err)
			}
			return
		}
		// Inbound frames keep the deadline fresh and nothing else.
		c.lastActivity = time.Now()
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case state, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Collapse to the freshest state when frames queued up.
			for len(c.send) > 0 {
				state = <-c.send
			}

			if err := c.conn.WriteJSON(state); err != nil {
				logrus.Errorf("Surface write error for user %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.pingFailCount++
				if c.pingFailCount > 3 {
					logrus.Warnf("Ping failed for surface %s, disconnecting", c.userID)
					return
				}
			}
		}
	}
}

// SendActivity queues a state frame for the surface. Drops when the surface
// cannot keep up; the write pump collapses the backlog anyway.
func (c *Client) SendActivity(state models.LiveActivityState) {
	if !c.isActive {
		return
	}

	select {
	case c.send <- state:
	default:
		logrus.Warnf("Send channel full for surface %s", c.userID)
	}
}

func (c *Client) cleanup() {
	c.closeOnce.Do(func() {
		c.isActive = false
		close(c.done)

		select {
		case c.hub.unregister <- c:
		default:
			// Hub already shut down
		}

		c.conn.Close()

		logrus.Infof("Surface closed: %s (%s)", c.userID, c.connectionID)
	})
}
