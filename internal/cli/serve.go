package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/neko233-com/iocrest-go/bootstrap"
	"github.com/neko233-com/iocrest-go/config"
	"github.com/neko233-com/iocrest-go/metrics"
	"github.com/neko233-com/iocrest-go/rest"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := newApp(opts.cfg, opts.logger)

			startCtx, cancel := context.WithTimeout(cmd.Context(), fx.DefaultTimeout)
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			sig := <-app.Done()
			opts.logger.Info("shutting down", zap.String("signal", sig.String()))

			stopCtx, cancel := context.WithTimeout(context.Background(), opts.cfg.Server.ShutdownTimeout)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
}

// newApp 组装 fx 应用：部署、监听器、HTTP 服务
func newApp(cfg *config.Config, logger *zap.Logger, extra ...fx.Option) *fx.App {
	options := []fx.Option{
		fx.Supply(cfg, logger),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		fx.Provide(newDeployment, newBootstrapContext),
		bootstrap.FxModule,
		fx.Provide(newServer),
		fx.Invoke(func(*Server) {}),
	}
	return fx.New(append(options, extra...)...)
}

func newDeployment(cfg *config.Config) *rest.Deployment {
	opts := []rest.Option{rest.WithRootPath(cfg.Server.RootPath)}
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.DefaultNamespace)
		opts = append(opts, rest.WithObserver(collector))
	}
	d := rest.NewDeployment(opts...)
	if collector != nil {
		d.Mount(cfg.Metrics.Path, collector.Handler())
	}
	return d
}

func newBootstrapContext(cfg *config.Config, d *rest.Deployment) *bootstrap.Context {
	return &bootstrap.Context{InitParams: cfg.InitParams(), Deployment: d}
}

// Server 部署的 HTTP 服务，生命周期由 fx 管理
type Server struct {
	srv    *http.Server
	logger *zap.Logger
	addr   string

	mutex sync.Mutex
	ln    net.Listener
	done  chan struct{}
}

func newServer(lc fx.Lifecycle, cfg *config.Config, sc *bootstrap.Context, logger *zap.Logger) *Server {
	s := &Server{
		srv: &http.Server{
			Handler:      sc.Deployment,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		logger: logger,
		addr:   cfg.Server.Addr,
	}
	lc.Append(fx.Hook{OnStart: s.Start, OnStop: s.Stop})
	return s
}

func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	s.ln = ln
	s.done = make(chan struct{})
	s.mutex.Unlock()

	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.mutex.Lock()
	done := s.done
	s.mutex.Unlock()
	if done != nil {
		<-done
	}
	return err
}

// Addr 实际监听地址，启动前为空
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
