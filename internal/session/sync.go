package session

import (
	"context"

	"github.com/sourcegraph/conc"
	"moff.io/wallet-modal/internal/chains"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/poller"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
	"moff.io/wallet-modal/pkg/observable"
)

const (
	fieldChainID          = "chainId"
	fieldSelectedAccount  = "selectedAccount"
	fieldBaseTokenBalance = "baseTokenBalance"
)

// tick checks the three polled fields concurrently. A failing field is
// cleared without touching the others.
func (s *Session) tick(ctx context.Context, gen poller.Generation) {
	s.writeMu.Lock()
	res := s.result
	s.writeMu.Unlock()
	if res == nil {
		s.poller.Stop()
		return
	}

	var wg conc.WaitGroup
	wg.Go(func() { s.syncChainID(ctx, gen, res) })
	wg.Go(func() { s.syncSelectedAccount(ctx, gen, res) })
	wg.Go(func() { s.syncBalance(ctx, gen, res) })
	if r := wg.WaitAndRecover(); r != nil {
		errors.Report(errors.Wrap(r.AsError(), "sync tick panicked"))
		log.WithFields(log.Fields{"session": s.id}).Errorf("sync tick panicked: %v", r.Value)
	}
}

func (s *Session) syncChainID(ctx context.Context, gen poller.Generation, res *connector.Result) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TickTimeout)
	defer cancel()

	if res.GetNetwork == nil {
		s.fieldFailed(gen, res, fieldChainID, errors.New("connector reports no network"))
		return
	}
	network, err := res.GetNetwork(ctx)
	if err == nil && network == nil {
		err = errors.New("empty network")
	}
	if err != nil {
		s.fieldFailed(gen, res, fieldChainID, err)
		return
	}
	s.commit(gen, res, func() (observable.Notification, bool) {
		return observable.SetIfChanged(s.conn.ChainID, network.ChainID)
	})
}

func (s *Session) syncSelectedAccount(ctx context.Context, gen poller.Generation, res *connector.Result) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TickTimeout)
	defer cancel()

	if res.GetAccounts == nil {
		s.fieldFailed(gen, res, fieldSelectedAccount, errors.New("connector reports no accounts"))
		return
	}
	accounts, err := res.GetAccounts(ctx)
	if err != nil {
		s.fieldFailed(gen, res, fieldSelectedAccount, err)
		return
	}
	account, ok := accounts.Selected()
	if !ok {
		// no exposed account is a state, not a failure
		s.commit(gen, res, func() (observable.Notification, bool) {
			return observable.UnsetIfPresent(s.conn.SelectedAccount)
		})
		return
	}
	s.commit(gen, res, func() (observable.Notification, bool) {
		return observable.SetIfChanged(s.conn.SelectedAccount, account)
	})
}

func (s *Session) syncBalance(ctx context.Context, gen poller.Generation, res *connector.Result) {
	signer, ok := s.conn.Signer.Get()
	if !ok || signer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.TickTimeout)
	defer cancel()

	wei, err := signer.Balance(ctx)
	if err == nil && wei == nil {
		err = errors.New("empty balance")
	}
	if err != nil {
		s.fieldFailed(gen, res, fieldBaseTokenBalance, err)
		return
	}
	balance := chains.FormatEther(wei)
	s.commit(gen, res, func() (observable.Notification, bool) {
		return observable.SetIfChanged(s.conn.BaseTokenBalance, balance)
	})
}

// fieldFailed reports a poll failure and clears the field.
func (s *Session) fieldFailed(gen poller.Generation, res *connector.Result, field string, cause error) {
	if !s.poller.Active(gen) {
		return
	}
	pe := &connector.PollTransientError{Field: field, Err: cause}
	log.WithFields(log.Fields{"session": s.id, "field": field}).Warnf("poll failed: %v", cause)
	errors.Report(errors.WithStack(pe))

	s.commit(gen, res, func() (observable.Notification, bool) {
		switch field {
		case fieldChainID:
			return observable.UnsetIfPresent(s.conn.ChainID)
		case fieldSelectedAccount:
			return observable.UnsetIfPresent(s.conn.SelectedAccount)
		default:
			return observable.UnsetIfPresent(s.conn.BaseTokenBalance)
		}
	})
}

// commit stores one tick result unless the generation went stale or the
// connection it was read from is gone.
func (s *Session) commit(gen poller.Generation, res *connector.Result, store func() (observable.Notification, bool)) {
	s.writeMu.Lock()
	if !s.poller.Active(gen) || s.result != res {
		s.writeMu.Unlock()
		return
	}
	n, changed := store()
	var derived observable.Notification
	if changed {
		derived = s.derive()
	}
	s.writeMu.Unlock()

	n.Deliver()
	derived.Deliver()
}
