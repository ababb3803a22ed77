package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marketbridge/gateway/internal/auth"
	"github.com/marketbridge/gateway/internal/config"
	"github.com/marketbridge/gateway/internal/eventrouter"
	"github.com/marketbridge/gateway/internal/hub"
	"github.com/marketbridge/gateway/internal/idgen"
	"github.com/marketbridge/gateway/internal/metrics"
	"github.com/marketbridge/gateway/internal/order"
	"github.com/marketbridge/gateway/internal/routing"
	"github.com/marketbridge/gateway/internal/subscription"
	"github.com/marketbridge/gateway/internal/upstream"
)

// Supervisor builds every gateway component in dependency order (C1, C2,
// C3, C4, C6, C7, C5) and drives their lifetime: concurrent run loops,
// then a reverse-order shutdown that drains WebSocket clients before the
// upstream session is closed.
type Supervisor struct {
	logger *slog.Logger

	ids       *idgen.Allocator
	tables    *routing.Tables
	upstream  *upstream.Session
	router    *eventrouter.Router
	subs      *subscription.Manager
	orders    *order.Manager
	hub       *hub.Hub
	collector *metrics.Collector

	metricsAddr string
	metricsPath string
}

// New builds the full component graph from cfg. creds may be nil only in
// tests that exercise the session against a fixture that skips handshake
// verification.
func New(cfg config.Config, creds *auth.Credentials, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}

	ids := idgen.New()
	tables := routing.New()

	upSess := upstream.New(upstream.Config{
		Addr:                 fmt.Sprintf("%s:%d", cfg.Upstream.Host, cfg.Upstream.Port),
		ClientID:             cfg.Upstream.KeyID,
		KeyID:                cfg.Upstream.KeyID,
		PrivateKeyPath:       cfg.Upstream.PrivateKeyPath,
		WriteTimeout:         cfg.Upstream.SendDeadline,
		IdleTimeout:          cfg.Upstream.IdleTimeout,
		ReconnectBaseWait:    cfg.Upstream.ReconnectBase,
		ReconnectMaxWait:     cfg.Upstream.ReconnectCap,
	}, creds, logger)

	// The Router, Subscription Manager, and Order Manager form a cycle (the
	// Router needs to call into the managers on ConnectionReady/Lost and
	// VendorError; the managers need the Router to register transient
	// contract-detail lookups and need the Hub to forward to). Build the
	// Router first with its Forwarder/Subscriptions/Orders unset, then wire
	// them in once the managers and Hub exist.
	router := eventrouter.New(ids, tables, nil, nil, nil, logger)

	subs := subscription.New(subscription.Config{SendTimeout: cfg.Upstream.SendDeadline}, ids, tables, upSess, router, logger)
	orders := order.New(order.Config{
		SendTimeout: cfg.Upstream.SendDeadline,
		GCInterval:  cfg.Orders.GCInterval,
		Retention:   cfg.Orders.Retention,
	}, ids, tables, upSess, logger)

	router.SetSubscriptions(subs)
	router.SetOrders(orders)

	h := hub.New(hub.Config{
		ListenAddr:       fmt.Sprintf("%s:%d", cfg.Hub.ListenHost, cfg.Hub.ListenPort),
		MaxMessageBytes:  int64(cfg.Hub.MaxMessageBytes),
		QueueCapacity:    cfg.Hub.ClientQueueCapacity,
		PingInterval:     cfg.Hub.PingInterval,
		PongGracePeriods: cfg.Hub.PongMisses,
	}, subs, orders, logger)

	router.SetForwarder(h)

	return &Supervisor{
		logger:      logger,
		ids:         ids,
		tables:      tables,
		upstream:    upSess,
		router:      router,
		subs:        subs,
		orders:      orders,
		hub:         h,
		collector:   metrics.New(),
		metricsAddr: fmt.Sprintf(":%d", cfg.Metrics.Port),
		metricsPath: cfg.Metrics.Path,
	}
}

// Run starts every component and blocks until ctx is canceled, at which
// point it drains the Hub's clients, closes the upstream session, and
// stops the remaining loops, returning once everything has exited.
func (s *Supervisor) Run(ctx context.Context) error {
	coreCtx, cancelCore := context.WithCancel(context.Background())
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelCore()
	defer cancelHub()

	eg, egCtx := errgroup.WithContext(coreCtx)

	eg.Go(func() error { return s.upstream.Run(egCtx) })
	eg.Go(func() error { return s.router.Run(egCtx, s.upstream.Events()) })
	eg.Go(func() error { return s.orders.Run(egCtx) })
	eg.Go(func() error { return s.runMetricsServer(egCtx) })

	hubDone := make(chan error, 1)
	go func() { hubDone <- s.hub.Run(hubCtx) }()

	select {
	case <-ctx.Done():
	case <-egCtx.Done():
		s.logger.Warn("a component run loop exited early, shutting down", "error", context.Cause(egCtx))
	}
	s.logger.Info("shutdown signal received, draining client hub")

	cancelHub()
	if err := <-hubDone; err != nil {
		s.logger.Warn("hub run loop returned error during shutdown", "error", err)
	}

	s.logger.Info("closing upstream session")
	if err := s.upstream.Close(); err != nil {
		s.logger.Warn("upstream close returned error", "error", err)
	}

	cancelCore()
	return eg.Wait()
}

func (s *Supervisor) runMetricsServer(ctx context.Context) error {
	sample := metrics.Sampler{
		UpstreamPhase: s.upstream.Status,
		Subscriptions: s.subs.Count,
		Orders:        s.orders.Count,
		Clients:       func() int { return len(s.hub.Snapshot()) },
	}
	go s.collector.Run(ctx, sample, 15*time.Second)

	srv := &http.Server{Addr: s.metricsAddr, Handler: s.collector.Handler(s.metricsPath, s.upstream.Status)}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
