// Package funding serves the fund screen over HTTP: it opens screen sessions,
// wires each one to a deposit controller talking to the wallet API with the
// caller's token, and applies user actions to it.
package funding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/wallet_bff/internal/channel"
	"github.com/congo-pay/wallet_bff/internal/deposit"
	"github.com/congo-pay/wallet_bff/internal/notification"
	"github.com/congo-pay/wallet_bff/internal/querycache"
	"github.com/congo-pay/wallet_bff/internal/session"
	"github.com/congo-pay/wallet_bff/internal/shell"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

// ServiceOptions lists the collaborators of a Service. Queries and Notifier
// are optional.
type ServiceOptions struct {
	Wallet   *walletapi.Client
	Queries  querycache.Store
	QueryTTL time.Duration
	Sessions *session.Store
	Notifier notification.Notifier
	Metrics  deposit.Metrics
	Logger   *slog.Logger
}

// Service opens and resolves fund screen sessions.
type Service struct {
	wallet   *walletapi.Client
	queries  querycache.Store
	queryTTL time.Duration
	sessions *session.Store
	notifier notification.Notifier
	metrics  deposit.Metrics
	logger   *slog.Logger
}

// NewService validates the required collaborators.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Wallet == nil {
		return nil, fmt.Errorf("wallet api client is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		wallet:   opts.Wallet,
		queries:  opts.Queries,
		queryTTL: opts.QueryTTL,
		sessions: opts.Sessions,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// OpenInput captures the initial screen configuration.
type OpenInput struct {
	Country string
	Channel channel.Kind
	TabBar  shell.TabBarConfig
}

// Open mounts a screen for token and performs its initial loads. Load
// failures are part of the returned screen, not an error.
func (s *Service) Open(ctx context.Context, token string, input OpenInput) *session.Session {
	remote := walletapi.NewCached(s.wallet.WithToken(token), s.queries, s.queryTTL, s.logger)
	controller := deposit.New(remote, deposit.Options{
		Country:  input.Country,
		Channel:  input.Channel,
		Logger:   s.logger,
		Notifier: s.notifier,
		Metrics:  s.metrics,
	})
	sess := s.sessions.Create(token, controller, input.TabBar)
	if err := controller.Load(ctx); err != nil {
		s.logger.Warn("fund screen loaded with errors", slog.String("session_id", sess.ID), slog.Any("error", err))
	}
	return sess
}

// Session resolves a session owned by token.
func (s *Service) Session(id, token string) (*session.Session, error) {
	return s.sessions.Get(id, token)
}

// Close unmounts the screen and returns the restored tab bar.
func (s *Service) Close(id, token string) (shell.TabBarConfig, error) {
	return s.sessions.Delete(id, token)
}
