package http

import (
	"context"
	"sync"
)

// QRBoard keeps the latest WalletConnect pairing code for the chooser page.
// It is the QR presenter of the walletconnect connector.
type QRBoard struct {
	mu  sync.RWMutex
	uri string
	png []byte
}

func NewQRBoard() *QRBoard {
	return &QRBoard{}
}

func (b *QRBoard) Present(_ context.Context, uri string, png []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uri, b.png = uri, png
	return nil
}

func (b *QRBoard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uri, b.png = "", nil
}

func (b *QRBoard) Current() (string, []byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.uri, b.png, b.png != nil
}
