package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moff.io/wallet-modal/internal/aws"
	"moff.io/wallet-modal/internal/chains/moralis"
	"moff.io/wallet-modal/internal/config"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/connector/builtin"
	"moff.io/wallet-modal/internal/connector/walletconnect"
	"moff.io/wallet-modal/internal/databus"
	"moff.io/wallet-modal/internal/http"
	"moff.io/wallet-modal/internal/selection"
	"moff.io/wallet-modal/internal/starter"
	"moff.io/wallet-modal/internal/store"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

func main() {
	log.Infof("Starting app")
	startApp()
}

func startApp() {
	defer func() {
		if i := recover(); i != nil {
			log.Fatal(errors.ErrorfAndReport("%v", i))
		}
	}()
	config.Read()
	cfg := config.Global
	log.SetLevel(cfg.LogLevel)
	if err := errors.NewSentryReporter(cfg.SentryDSN); err != nil {
		log.Error(err)
	}
	errors.NewLarkReporter(cfg.LarkAlarmWebhook, time.Minute)
	if cfg.MoralisAPIKey != "" {
		moralis.Init(cfg.MoralisAPIKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	choices, closer, err := store.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	var (
		board   *http.QRBoard
		chooser *http.Chooser
		choose  selection.Chooser = selection.StdioChooser()
		present walletconnect.Presenter
	)
	if cfg.Chooser == "http" {
		board = http.NewQRBoard()
		chooser = http.NewChooser()
		choose, present = chooser, board
	} else {
		present = &walletconnect.TerminalPresenter{Out: os.Stdout}
	}
	if cfg.BucketName() != "" {
		clients, err := aws.Init(ctx, cfg.BucketName(), cfg.BucketRegion())
		if err != nil {
			log.Fatal(err)
		}
		publisher := aws.NewQRPublisher(clients, aws.DefaultQRExpiry)
		publisher.Next = present
		present = publisher
	}

	providers, err := builtin.FromConfig(cfg.Providers, present)
	if err != nil {
		log.Fatal(err)
	}
	modal, err := selection.New(selection.Options{
		Providers:     providers,
		CacheProvider: cfg.CacheProvider,
		SyncRate:      cfg.SyncRate(),
		TickTimeout:   cfg.TickTimeout(),
		Width:         cfg.Width,
		MaxWidth:      cfg.MaxWidth,
	}, selection.WithChooser(choose), selection.WithChoiceStore(choices))
	if err != nil {
		log.Fatal(err)
	}
	defer modal.Close()

	unwatch := logConnection(modal)
	defer unwatch()

	server := http.NewServer("", modal, chooser, board)
	elems := []starter.Startable{server}
	if cfg.KafkaServer != "" {
		bus, err := databus.Dial(cfg.KafkaServer, cfg.KafkaTopic, 1)
		if err != nil {
			log.Fatal(err)
		}
		defer bus.Close()
		defer bus.Watch(modal.Session())()
		elems = append(elems, bus)
	}
	starter.Start(ctx, elems...)

	go func() {
		if _, err := modal.Connect(ctx); err != nil {
			if errors.Is(err, connector.ErrUserRejected) {
				log.Info("wallet selection dismissed")
				return
			}
			log.Errorf("connect: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	starter.Stop(server)
}

// logConnection prints the connection whenever it becomes complete.
func logConnection(modal *selection.Modal) func() {
	s := modal.Session()
	return s.Connection().IsConnected.Subscribe(func(connected bool, ok bool) {
		if !ok || !connected {
			log.Info("wallet disconnected")
			return
		}
		snap := s.Snapshot()
		fields := log.Fields{"connector": snap.ConnectorID}
		// a poll may clear a field before the snapshot is taken
		if snap.ChainID != nil {
			fields["chain_id"] = *snap.ChainID
		}
		if snap.SelectedAccount != nil {
			fields["account"] = *snap.SelectedAccount
		}
		if snap.BaseTokenBalance != nil {
			fields["balance"] = *snap.BaseTokenBalance
		}
		log.WithFields(fields).Infof("wallet connected")
	})
}
