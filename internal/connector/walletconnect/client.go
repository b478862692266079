package walletconnect

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

var (
	errSessionClosed = errors.New("session closed")
	errSignRejected  = errors.New("ownership proof rejected")
)

const defaultReadTimeout = time.Minute * 5

type Config struct {
	// BridgeURL defaults to a random public bridge.
	BridgeURL   string
	ReadTimeout time.Duration
	ChainID     uint64
	Meta        PeerMeta
}

type client struct {
	// None zero value means can not call ConnectWallet again, you should recreate client instead.
	connectCount atomic.Int64

	readTimeout time.Duration
	conn        *websocket.Conn
	writeMu     sync.Mutex
	bridgeURL   string

	handshakeTopic string
	clientID       string
	encryptionKey  []byte
	chainID        uint64
	meta           PeerMeta

	signMsg string
	wallet  *Wallet
}

func NewClient(cfg Config) ClientV1 {
	encryptionKey, _ := generateRandomBytes(256 / 8)
	if cfg.BridgeURL == "" {
		cfg.BridgeURL = randomBridgeURL()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &client{
		encryptionKey:  encryptionKey,
		bridgeURL:      strings.TrimRight(cfg.BridgeURL, "/"),
		handshakeTopic: uuid.NewString(),
		clientID:       uuid.NewString(),
		readTimeout:    cfg.ReadTimeout,
		chainID:        cfg.ChainID,
		meta:           cfg.Meta,
		wallet:         &Wallet{},
	}
}

func (c *client) URI() string {
	return fmt.Sprintf("wc:%s@1?bridge=%s&key=%s",
		c.handshakeTopic, url.QueryEscape(c.bridgeURL), hex.EncodeToString(c.encryptionKey))
}

// QRCode 返回用户钱包连接的二维码.
func (c *client) QRCode() ([]byte, error) {
	uri := c.URI()
	log.Debugf("wallet connect - generated uri:%v", uri)
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Wrap(err, "encode wallet connect qr code")
	}
	return png, nil
}

func (c *client) ConnectWallet(ctx context.Context, signMsg string, present PresentFn) (*Session, error) {
	if !c.connectCount.CAS(0, 1) {
		return nil, errors.NewWithReport("duplicate connect wallet")
	}
	c.signMsg = signMsg
	if err := c.dialWS(ctx); err != nil {
		return nil, err
	}

	// unblock pending reads when the caller gives up
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.close()
		case <-stop:
		}
	}()
	err := c.interact(ctx, present)
	close(stop)
	if err != nil {
		c.close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		c.close()
		return nil, errors.Wrap(err, "clear websocket read timeout")
	}
	s := newSession(c, c.wallet)
	go s.listen()
	return s, nil
}

func (c *client) interact(ctx context.Context, present PresentFn) error {
	if err := c.subscribeSession(); err != nil {
		return err
	}
	requestID, err := c.createSessionRequest()
	if err != nil {
		return err
	}
	if err := present(ctx); err != nil {
		return err
	}
	if err := c.createSessionResponse(requestID); err != nil {
		return err
	}
	if !c.wallet.approved {
		return connector.ErrUserRejected
	}
	if c.signMsg == "" {
		return nil
	}
	signID, err := c.signMessageRequest()
	if err != nil {
		return err
	}
	if err := c.checkSignMessageResponse(signID); err != nil {
		return err
	}
	if !c.wallet.signed {
		c.killSession()
		return errSignRejected
	}
	return nil
}

func (c *client) dialWS(ctx context.Context) error {
	wsURL := websocketURL(c.bridgeURL, "wc", "1")
	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return errors.Wrap(err, "dial to wallet connect bridge url")
	}
	c.conn = conn
	return nil
}

func (c *client) close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *client) sendRequest(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	err := c.conn.WriteMessage(websocket.TextMessage, payload)
	if err != nil {
		return errors.Wrap(err, "write wallet connect message to server")
	}
	return nil
}

func (c *client) encryptJSONRpc(jsonRpc string) (*wcMessagePayload, error) {
	iv, err := generateRandomBytes(128 / 8)
	if err != nil {
		return nil, errors.Wrap(err, "generate random bytes")
	}
	data, err := aes256Encrypt([]byte(jsonRpc), c.encryptionKey, iv)
	if err != nil {
		return nil, err
	}
	unsigned := append(append([]byte{}, data...), iv...)
	hmac := hmacSha256(unsigned, c.encryptionKey)
	msg := &wcMessagePayload{
		Data: hex.EncodeToString(data),
		IV:   hex.EncodeToString(iv),
		Hmac: hex.EncodeToString(hmac),
	}
	return msg, nil
}

func (c *client) decryptJSONRpc(msg *wcMessage) (string, error) {
	mp, err := newWCMessagePayloadFromBytes([]byte(msg.Payload))
	if err != nil {
		return "", err
	}
	iv, err := hex.DecodeString(mp.IV)
	if err != nil {
		return "", errors.Wrap(err, "decode iv hex")
	}
	cipher, err := hex.DecodeString(mp.Data)
	if err != nil {
		return "", errors.Wrap(err, "decode cipher hex")
	}
	// 校验hmac一致性
	unsigned := append(append([]byte{}, cipher...), iv...)
	hmacHex := hex.EncodeToString(hmacSha256(unsigned, c.encryptionKey))
	if hmacHex != mp.Hmac {
		return "", errors.NewWithReport("inconsistent session message hmac")
	}
	// 解密数据
	data, err := aes256Decrypt(cipher, c.encryptionKey, iv)
	if err != nil {
		return "", errors.Wrap(err, "aes256 decrypt")
	}
	return string(data), nil
}

// readWalletConnectResponse reads one decrypted JSON-RPC message. A zero
// timeout waits forever.
func (c *client) readWalletConnectResponse(timeout time.Duration) (string, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return "", errors.Wrap(err, "set websocket read timeout")
	}
	msgType, data, err := c.conn.ReadMessage()
	if nil != err {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return "", errSessionClosed
		}
		return "", errors.Wrap(err, "read session response")
	}
	switch msgType {
	case websocket.TextMessage:
		log.Debugf("wallet connect - receive:%v", string(data))
		msg, err := newWCMessageFromBytes(data)
		if err != nil {
			return "", err
		}
		if msg.Type == "ack" {
			return "", nil
		}
		if err := c.sessionMessageACK(msg.Topic); err != nil {
			return "", err
		}
		return c.decryptJSONRpc(msg)
	default:
		return "", errors.NewWithReport("unsupported message type")
	}
}

// readResponse skips messages until the reply to request id arrives.
func (c *client) readResponse(id int64) (string, error) {
	for {
		payload, err := c.readWalletConnectResponse(c.readTimeout)
		if err != nil {
			return "", err
		}
		if payload == "" {
			continue
		}
		if update, ok := parseSessionUpdate(payload); ok && !update.Approved {
			// 用户断开链接
			log.Warnf("wallet connect - session closed from request %v", payload)
			return "", errSessionClosed
		}
		if gjson.Get(payload, "id").Int() == id && !gjson.Get(payload, "method").Exists() {
			return payload, nil
		}
		log.Debugf("wallet connect - skip unrelated message %v", payload)
	}
}

// parseSessionUpdate 检查是否是会话更新或者链接断开
func parseSessionUpdate(jsonRpc string) (*sessionUpdate, bool) {
	if gjson.Get(jsonRpc, "method").String() != "wc_sessionUpdate" {
		return nil, false
	}
	params := gjson.Get(jsonRpc, "params").Array()
	if len(params) == 0 {
		// 不应该发生
		return nil, false
	}
	var update sessionUpdate
	if err := json.Unmarshal([]byte(params[0].Raw), &update); err != nil {
		log.Warnf("wallet connect - malformed session update %v", jsonRpc)
		return nil, false
	}
	if !params[0].Get("approved").Exists() {
		// 不应该发生
		update.Approved = true
	}
	return &update, true
}

func (c *client) sessionMessageACK(topic string) error {
	msg := wcMessage{
		Topic:   topic,
		Type:    "ack",
		Payload: "",
		Silent:  true,
	}
	log.Debugf("wallet connect - session message ack:%v", string(msg.Marshal()))
	return c.sendRequest(msg.Marshal())
}

func (c *client) publish(topic string, jsonRpc *jsonRpcRequest) error {
	payload, err := c.encryptJSONRpc(jsonRpc.Marshal())
	if err != nil {
		return err
	}
	msg := wcMessage{
		Topic:   topic,
		Type:    "pub",
		Payload: payload.Marshal(),
		Silent:  jsonRpc.IsSilentPayload(),
	}
	log.Debugf("wallet connect - publish %v:%v", jsonRpc.Method, string(msg.Marshal()))
	return c.sendRequest(msg.Marshal())
}

func (c *client) createSessionRequest() (int64, error) {
	var chainID interface{}
	if c.chainID != 0 {
		chainID = c.chainID
	}
	jsonRpc := newJSONRpcRequest("wc_sessionRequest", peer{
		PeerID:   c.clientID,
		PeerMeta: c.meta,
		ChainID:  chainID,
	})
	return jsonRpc.Id, c.publish(c.handshakeTopic, jsonRpc)
}

func (c *client) subscribeSession() error {
	msg := wcMessage{
		Topic:   c.clientID,
		Type:    "sub",
		Payload: "",
		Silent:  true,
	}
	log.Debugf("wallet connect - subscribe session:%v", string(msg.Marshal()))
	return c.sendRequest(msg.Marshal())
}

func (c *client) createSessionResponse(id int64) error {
	sessionResult, err := c.readResponse(id)
	if err != nil {
		if errors.Is(err, errSessionClosed) {
			return nil
		}
		return err
	}
	log.Debugf("wallet connect - create session response:%v", sessionResult)
	if errResult := gjson.Get(sessionResult, "error"); errResult.Exists() {
		errStr := errResult.Get("message").String()
		if errStr == "" {
			errStr = errResult.String()
		}
		if strings.Contains(errStr, "Session Rejected") {
			return nil
		}
		return errors.New(errStr)
	}
	result := gjson.Get(sessionResult, "result").Raw
	if err := json.Unmarshal([]byte(result), c.wallet); err != nil {
		return errors.Wrap(err, "unmarshal wallet info")
	}
	c.wallet.approved = c.wallet.Approved == nil || *c.wallet.Approved
	if !c.wallet.approved {
		return nil
	}
	if len(c.wallet.Accounts) == 0 {
		return errors.New("no wallet accounts acquired")
	}
	return nil
}

func (c *client) signMessageRequest() (int64, error) {
	data := hexEncode(c.signMsg)
	jsonRpc := newJSONRpcRequest("eth_sign", c.wallet.Accounts[0], data)
	return jsonRpc.Id, c.publish(c.wallet.PeerID, jsonRpc)
}

func (c *client) checkSignMessageResponse(id int64) error {
	signResult, err := c.readResponse(id)
	if err != nil {
		if errors.Is(err, errSessionClosed) {
			return nil
		}
		return err
	}
	log.Debugf("wallet connect - sign message response:%v", signResult)
	signatureHex := gjson.Get(signResult, "result").String()
	c.wallet.signed = verifySignature(c.wallet.Accounts[0], signatureHex, []byte(c.signMsg))
	return nil
}

// killSession tells the wallet the session is over.
func (c *client) killSession() {
	if c.wallet == nil || c.wallet.PeerID == "" {
		return
	}
	err := c.publish(c.wallet.PeerID, newJSONRpcRequest("wc_sessionUpdate", sessionUpdate{Approved: false}))
	if err != nil {
		log.Debugf("wallet connect - kill session: %v", err)
	}
}

func hexEncode(msg string) string {
	return "0x" + hex.EncodeToString([]byte(msg))
}
