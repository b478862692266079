package databus

import (
	"encoding/json"
	"time"

	"go.uber.org/atomic"

	"moff.io/wallet-modal/internal/session"
	"moff.io/wallet-modal/pkg/log"
)

type EventType string

const (
	Connected      EventType = "connected"
	Disconnected   EventType = "disconnected"
	ChainChanged   EventType = "chain_changed"
	AccountChanged EventType = "account_changed"
	BalanceChanged EventType = "balance_changed"
)

// ConnectionEvent is one change of a session's connection.
type ConnectionEvent struct {
	ID         int64            `json:"id,string"`
	Type       EventType        `json:"type"`
	SessionID  string           `json:"session_id"`
	Connection *session.Snapshot `json:"connection"`
	Time       int64            `json:"time"`

	topic string
}

func (e *ConnectionEvent) Topic() string {
	return e.topic
}

func (e *ConnectionEvent) Serialize() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		log.Errorf("marshal connection event: %v", err)
		return nil
	}
	return b
}

func (db *DataBus) event(s *session.Session, t EventType) *ConnectionEvent {
	return &ConnectionEvent{
		ID:         db.node.Generate().Int64(),
		Type:       t,
		SessionID:  s.ID(),
		Connection: s.Snapshot(),
		Time:       time.Now().UnixMilli(),
		topic:      db.topic,
	}
}

// Watch queues an event for every change of s until unsubscribe is called.
// Cleared fields other than IsConnected produce no event.
func (db *DataBus) Watch(s *session.Session) (unsubscribe func()) {
	conn := s.Connection()
	connected := atomic.NewBool(false)
	unsubs := []func(){
		conn.IsConnected.Subscribe(func(v bool, ok bool) {
			now := ok && v
			if connected.Swap(now) == now {
				return
			}
			if now {
				db.enqueue(db.event(s, Connected))
			} else {
				db.enqueue(db.event(s, Disconnected))
			}
		}),
		conn.ChainID.Subscribe(func(_ uint64, ok bool) {
			if ok {
				db.enqueue(db.event(s, ChainChanged))
			}
		}),
		conn.SelectedAccount.Subscribe(func(_ string, ok bool) {
			if ok {
				db.enqueue(db.event(s, AccountChanged))
			}
		}),
		conn.BaseTokenBalance.Subscribe(func(_ string, ok bool) {
			if ok {
				db.enqueue(db.event(s, BalanceChanged))
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
