package walletconnect

import "context"

// ClientV1 wallet connect交互协议v1版客户端
// 交互流程见文档：https://docs.walletconnect.com/tech-spec#establishing-connection
type ClientV1 interface {

	// URI 返回钱包连接的uri，二维码即为该uri
	URI() string

	// QRCode 返回钱包连接的二维码png，用以展示给交互的用户
	QRCode() ([]byte, error)

	// ConnectWallet 订阅会话并发出会话请求，调用 present 展示二维码后等待用户在钱包中确认。
	// signMsg 不为空时，会要求用户签名并在本地校验签名。
	// 用户拒绝时返回 connector.ErrUserRejected；成功时返回保持桥接连接的 Session。
	ConnectWallet(ctx context.Context, signMsg string, present PresentFn) (*Session, error)
}

// PresentFn 展示二维码的函数
type PresentFn func(ctx context.Context) error
