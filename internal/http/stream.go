package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/session"
	"moff.io/wallet-modal/pkg/log"
	"moff.io/wallet-modal/pkg/log/meta"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// stream pushes a snapshot on connect and after every change.
func (s *Server) stream(ctx *gin.Context) {
	if !s.streams.TryAdd() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"code": 5003, "msg": "too many streams"})
		return
	}
	defer s.streams.Done()

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.WithFields(meta.Fields(ctx.Request.Context())).Warnf("upgrade stream: %v", err)
		return
	}
	defer conn.Close()

	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	unsubscribe := watch(s.modal.Session().Connection(), notify)
	defer unsubscribe()

	// the client only sends close frames
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	notify()
	for {
		select {
		case <-closed:
			return
		case <-changed:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(s.modal.Session().Snapshot()); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// watch calls fn after any value of conn is published.
func watch(conn *session.Connection, fn func()) (unsubscribe func()) {
	unsubs := []func(){
		conn.Provider.Subscribe(func(interface{}, bool) { fn() }),
		conn.Signer.Subscribe(func(connector.Signer, bool) { fn() }),
		conn.ChainID.Subscribe(func(uint64, bool) { fn() }),
		conn.SelectedAccount.Subscribe(func(string, bool) { fn() }),
		conn.BaseTokenBalance.Subscribe(func(string, bool) { fn() }),
		conn.IsConnected.Subscribe(func(bool, bool) { fn() }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
