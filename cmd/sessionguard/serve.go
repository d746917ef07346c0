package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/sessionguard/core/config"
	"github.com/dmitrymomot/sessionguard/core/guard"
	"github.com/dmitrymomot/sessionguard/core/handler"
	"github.com/dmitrymomot/sessionguard/core/health"
	"github.com/dmitrymomot/sessionguard/core/logger"
	"github.com/dmitrymomot/sessionguard/core/server"
	"github.com/dmitrymomot/sessionguard/middleware"
	"github.com/dmitrymomot/sessionguard/pkg/classifier"
	"github.com/dmitrymomot/sessionguard/pkg/clientip"
)

var upstream string

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve HTTP traffic through the session guard",
	GroupID: "server",
	Long: `Serve HTTP traffic through the session guard.

With --upstream every request is proxied to that URL; without it a small
echo endpoint answers, which is enough to exercise the pipeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return serve(ctx, newLogger())
	},
}

func init() {
	serveCmd.Flags().StringVar(&upstream, "upstream", os.Getenv("SESSIONGUARD_UPSTREAM"), "URL of the application to proxy to")
}

func serve(ctx context.Context, log *slog.Logger) error {
	var (
		srvCfg   server.Config
		guardCfg guard.Config
	)
	if err := config.Load(&srvCfg); err != nil {
		return err
	}
	if err := config.Load(&guardCfg); err != nil {
		return err
	}

	b := &backend{}
	defer b.Close()

	if err := openStore(ctx, b, log); err != nil {
		return err
	}
	if err := openLocker(ctx, b, guardCfg); err != nil {
		return err
	}

	opts := []guard.Option{guard.WithLogger(log)}
	if b.locker != nil {
		opts = append(opts, guard.WithLocker(b.locker))
	}

	notifiers, err := openNotifiers(guardCfg, b, log)
	if err != nil {
		return err
	}
	if len(notifiers) > 0 {
		opts = append(opts, guard.WithNotifier(notifiers))
	}

	g := guard.New(guardCfg, b.store, opts...)
	if d := g.Dispatcher(); d != nil {
		b.checks = append(b.checks, health.Check{Name: "dispatcher", Fn: d.Healthcheck})
	}

	app, err := appHandler()
	if err != nil {
		return err
	}

	var ipOpts []clientip.Option
	if guardCfg.CustomIPHeader != "" {
		ipOpts = append(ipOpts, clientip.WithCustomHeader(guardCfg.CustomIPHeader))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health/live", handler.Default(health.Liveness[*handler.RequestContext]))
	mux.Handle("GET /health/ready", handler.Default(health.Readiness[*handler.RequestContext](log, b.checks...)))
	mux.Handle("/", handler.Default(app,
		middleware.Logging[*handler.RequestContext](log),
		middleware.ClientIP[*handler.RequestContext](ipOpts...),
		middleware.Guard[*handler.RequestContext](g),
	))

	// In-flight requests submit continuations until the listener has drained,
	// so the pool is stopped by a shutdown hook rather than by the signal.
	srv, err := server.NewFromConfig(srvCfg,
		server.WithLogger(log),
		server.WithShutdownHook(func(context.Context) error { return g.Stop() }))
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "starting session guard",
		logger.Component("cli"),
		slog.String("addr", srvCfg.Addr),
		slog.Bool("enabled", g.Enabled()),
		slog.Bool("sessions", guardCfg.GroupToSessions),
		slog.String("upstream", upstream))

	poolCtx, poolCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer poolCancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(g.Run(poolCtx))
	eg.Go(func() error {
		defer poolCancel()
		return srv.Run(ctx, mux)()
	})
	return eg.Wait()
}

// openNotifiers returns the completion notifiers enabled by configuration.
func openNotifiers(cfg guard.Config, b *backend, log *slog.Logger) (classifier.Multi, error) {
	var out classifier.Multi

	if cfg.Classifier.Enabled {
		h, err := classifier.NewHTTP(cfg.Classifier.HTTPConfig, classifier.WithLogger(log))
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}

	if natsURL := loadAppConfig().NATSURL; natsURL != "" {
		n, err := classifier.NewNATS(natsURL, cfg.NATSSubject)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = n.Close() })
		out = append(out, n)
	}

	return out, nil
}

// appHandler returns the guarded application: a reverse proxy to --upstream
// or the echo endpoint.
func appHandler() (handler.HandlerFunc[*handler.RequestContext], error) {
	if upstream == "" {
		return echo, nil
	}

	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", upstream)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)

	return func(*handler.RequestContext) handler.Response {
		return func(w http.ResponseWriter, r *http.Request) error {
			proxy.ServeHTTP(w, r)
			return nil
		}
	}, nil
}

func echo(ctx *handler.RequestContext) handler.Response {
	ip, _ := middleware.GetClientIP(ctx)
	return func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, err := fmt.Fprintf(w, "%s %s\nclient: %s\n", r.Method, r.URL.RequestURI(), ip)
		return err
	}
}
