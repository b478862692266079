package walletconnect

import (
	"fmt"
	"math/rand"
	"strings"
)

const (
	alphanumerical  = "abcdefghijklmnopqrstuvwxyz0123456789"
	bridgeURLFormat = "https://%v.bridge.walletconnect.org"
)

// randomBridgeURL picks one of the public v1 bridges.
func randomBridgeURL() string {
	c := alphanumerical[rand.Intn(len(alphanumerical))]
	return fmt.Sprintf(bridgeURLFormat, string(c))
}

// websocketURL turns a bridge url into its websocket endpoint.
func websocketURL(url, protocol, version string) string {
	if strings.HasPrefix(url, "http") {
		url = "ws" + strings.TrimPrefix(url, "http")
	}
	return url + "?protocol=" + protocol + "&version=" + version + "&env=wallet-modal"
}
