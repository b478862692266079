package errors

import (
	"os"
	"sync"

	"github.com/certifi/gocertifi"
	"github.com/getsentry/sentry-go"
	"moff.io/wallet-modal/pkg/log"
)

var (
	reportersMu sync.RWMutex
	reporters   []Reporter
)

func report(err error) {
	if err == nil {
		return
	}
	if os.Getenv(debugMode) != "" {
		return
	}
	reportersMu.RLock()
	defer reportersMu.RUnlock()
	for _, r := range reporters {
		r.Report(err)
	}
}

// Reporter 错误报告器
type Reporter interface {
	Report(error)
}

// AddReporter registers r for every later *AndReport call.
func AddReporter(r Reporter) {
	reportersMu.Lock()
	defer reportersMu.Unlock()
	reporters = append(reporters, r)
}

// ResetReporters drops every registered reporter.
func ResetReporters() {
	reportersMu.Lock()
	defer reportersMu.Unlock()
	reporters = nil
}

type sentryReporter struct {
}

func (s *sentryReporter) Report(err error) {
	sentry.CaptureException(err)
}

// 设置该变量，则sentry不会上报
const debugMode = "DEBUG"

// NewSentryReporter
// 初始化错误sentry报告器
// 环境变量DEBUG不为空时，不会产生错误上报
func NewSentryReporter(sentryDSN string) error {
	if sentryDSN == "" {
		log.Warn("empty DSN found, skipping sentry reporter initialization.")
		return nil
	}
	sentryClientOptions := sentry.ClientOptions{
		Dsn: sentryDSN,
	}

	rootCAs, err := gocertifi.CACerts()
	if err != nil {
		return Wrap(err, "init sentry CA")
	}

	sentryClientOptions.CaCerts = rootCAs
	err = sentry.Init(sentryClientOptions)
	if err != nil {
		return Wrap(err, "init sentry")
	}
	if os.Getenv(debugMode) == "" {
		log.Info("Env DEBUG not set, sentry reporting enabled.")
	} else {
		log.Info("Env DEBUG set, sentry reporting disabled.")
	}
	AddReporter(&sentryReporter{})
	return nil
}
