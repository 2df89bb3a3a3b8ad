package notify

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vocespace/spacekeeper/internal/modules/serializer"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Authenticator resolves a connecting client's token to the space and
// participant it may subscribe as.
type Authenticator interface {
	Authenticate(token string) (spaceID, participantID string, err error)
}

type client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	spaceID       string
	participantID string
}

// checkOrigin allows the listed origins, or any origin for "*". An empty
// list keeps gorilla's same-origin check.
func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	if _, wildcard := set["*"]; wildcard {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func bearerToken(c *gin.Context) string {
	if tok := c.Query("access_token"); tok != "" {
		return tok
	}
	tok, _ := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	return tok
}

// ServeWS returns the upgrade handler. The caller's space and identity come
// from its access token, never from the query string.
func (h *Hub) ServeWS(auth Authenticator, origins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(origins),
	}

	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("access token required"))
			return
		}
		spaceID, participantID, err := auth.Authenticate(tok)
		if err != nil {
			h.log.Debug("ws auth rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		if want := c.Query("space"); want != "" && want != spaceID {
			c.AbortWithStatusJSON(http.StatusForbidden, serializer.ForbiddenErr("token is for another space", nil))
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("ws upgrade failed", zap.Error(err))
			return
		}

		cl := &client{
			hub:           h,
			conn:          conn,
			send:          make(chan []byte, sendBuffer),
			spaceID:       spaceID,
			participantID: participantID,
		}
		h.register(cl)

		go cl.writePump()
		go cl.readPump()
	}
}

// readPump only drains control frames; clients talk to the HTTP API.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("ws read error", zap.String("participant_id", c.participantID), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
