package walletconnect

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/atomic"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

// Wallet is what the peer answers to the session request.
type Wallet struct {
	Meta     PeerMeta `json:"peerMeta"`
	ChainID  uint64   `json:"chainId"`
	Accounts []string `json:"accounts"`
	PeerID   string   `json:"peerId"`
	Approved *bool    `json:"approved,omitempty"`

	// approved or rejected
	approved bool
	// signed or rejected
	signed bool
}

func (in *Wallet) Confirmed() bool {
	return in.approved && in.signed
}

func (in *Wallet) IsApproved() bool {
	return in.approved
}

func (in *Wallet) Signed() bool {
	return in.signed
}

type wcMessagePayload struct {
	Data string `json:"data"`
	Hmac string `json:"hmac"`
	IV   string `json:"iv"`
}

func newWCMessagePayloadFromBytes(data []byte) (*wcMessagePayload, error) {
	var payload wcMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal wallet connect message payload")
	}
	return &payload, nil
}

func (e *wcMessagePayload) Marshal() string {
	s, err := json.Marshal(e)
	if err != nil {
		log.Errorf("marshal:%v", err)
	}
	return string(s)
}

type peer struct {
	PeerID   string      `json:"peerId"`
	PeerMeta PeerMeta    `json:"peerMeta"`
	ChainID  interface{} `json:"chainId"`
}

// PeerMeta describes either side of a session.
type PeerMeta struct {
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
	Name        string   `json:"name"`
}

// sessionUpdate is the single param of wc_sessionUpdate.
type sessionUpdate struct {
	Approved bool     `json:"approved"`
	ChainID  *uint64  `json:"chainId"`
	Accounts []string `json:"accounts"`
}

type wcMessage struct {
	Topic string `json:"topic"`
	// pub sub ack
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Silent  bool   `json:"silent"`
}

func newWCMessageFromBytes(data []byte) (*wcMessage, error) {
	var msg wcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(err, "unmarshal wallet connect message")
	}
	return &msg, nil
}

func (msg *wcMessage) Marshal() []byte {
	bytes, _ := json.Marshal(msg)
	return bytes
}

type jsonRpcRequest struct {
	Id      int64         `json:"id"`
	JSONRpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func newJSONRpcRequest(method string, params ...interface{}) *jsonRpcRequest {
	r := &jsonRpcRequest{
		Id:      payloadID(),
		JSONRpc: "2.0",
		Method:  method,
		Params:  []interface{}{},
	}
	if len(params) > 0 {
		r.Params = params
	}
	return r
}

func (e *jsonRpcRequest) Marshal() string {
	s, err := json.Marshal(e)
	if err != nil {
		log.Errorf("marshal:%v", err)
	}
	return string(s)
}

func (e *jsonRpcRequest) IsSilentPayload() bool {
	return strings.HasPrefix(e.Method, "wc_")
}

var lastPayloadID atomic.Int64

// payloadID is time based and strictly increasing.
func payloadID() int64 {
	now := time.Now().UnixNano() / 1000
	for {
		last := lastPayloadID.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if lastPayloadID.CAS(last, next) {
			return next
		}
	}
}
