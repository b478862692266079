package aws

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"moff.io/wallet-modal/internal/connector/walletconnect"
	"moff.io/wallet-modal/pkg/log"
)

const (
	qrKeyPrefix     = "walletconnect/qr/"
	DefaultQRExpiry = 10 * time.Minute
)

// QRPublisher uploads WalletConnect pairing codes and hands out a presigned
// link, for hosts with no screen of their own.
type QRPublisher struct {
	clients *Clients
	expiry  time.Duration
	// Next also receives the code with the presigned link as uri, may be nil.
	Next walletconnect.Presenter

	mu   sync.Mutex
	last string
}

func NewQRPublisher(clients *Clients, expiry time.Duration) *QRPublisher {
	if expiry <= 0 {
		expiry = DefaultQRExpiry
	}
	return &QRPublisher{clients: clients, expiry: expiry}
}

// Present replaces the previously published code.
func (p *QRPublisher) Present(ctx context.Context, uri string, png []byte) error {
	key := fmt.Sprintf("%v%v.png", qrKeyPrefix, uuid.NewString())
	if err := p.clients.PutFileToS3(ctx, key, "image/png", bytes.NewReader(png)); err != nil {
		return err
	}
	link, err := p.clients.GetS3PresignedAccessURL(ctx, key, p.expiry)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"key": key, "expiry": p.expiry.String()}).Infof("walletconnect qr code published: %v", link)

	p.mu.Lock()
	previous := p.last
	p.last = key
	p.mu.Unlock()
	if previous != "" {
		if err := p.clients.DeleteFileFromS3(ctx, previous); err != nil {
			log.Warnf("drop previous qr code %v: %v", previous, err)
		}
	}

	if p.Next != nil {
		return p.Next.Present(ctx, link, png)
	}
	return nil
}

// Last returns the key of the code currently published.
func (p *QRPublisher) Last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
