// go-breakout/internal/api/ws.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 << 10,
	WriteBufferSize: 4 << 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsIdle = 2 * time.Minute

// /api/sessions/:id/ws: every text frame is a CandleRequest, every reply a
// SignalResponse. Evaluation errors are reported in-band and keep the socket open.
func (s *Server) handleSessionWS(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	for {
		_ = ws.SetReadDeadline(time.Now().Add(wsIdle))
		var req CandleRequest
		if err := ws.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("session", sess.ID).Msg("websocket read ended")
			}
			return
		}
		resp, _ := s.feed(sess, req)
		if err := ws.WriteJSON(resp); err != nil {
			log.Debug().Err(err).Str("session", sess.ID).Msg("websocket write failed")
			return
		}
	}
}
