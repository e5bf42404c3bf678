package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const readHeaderTimeout = 5 * time.Second

// Config はサーバーの待ち受けと停止に関する設定です。
type Config struct {
	HTTPListenAddr  string
	GRPCListenAddr  string
	ShutdownTimeout time.Duration
}

// Server は HTTP API とヘルスチェック用 gRPC サーバーのライフサイクルを管理します。
type Server struct {
	cfg        Config
	log        zerolog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	probe      *HealthProbe
}

// New は HTTP と gRPC のサーバーを構築します。GRPCListenAddr が空か probe が nil の場合 gRPC は起動しません。
func New(cfg Config, h http.Handler, probe *HealthProbe, log zerolog.Logger, opts ...grpc.ServerOption) *Server {
	s := &Server{
		cfg: cfg,
		log: log,
		httpServer: &http.Server{
			Addr:              cfg.HTTPListenAddr,
			Handler:           h,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		probe: probe,
	}

	if cfg.GRPCListenAddr != "" && probe != nil {
		srv := grpc.NewServer(opts...)
		healthpb.RegisterHealthServer(srv, probe.HealthServer())
		reflection.Register(srv)
		s.grpcServer = srv
	}

	return s
}

// Run はサーバーとヘルスプローブを起動し、コンテキストがキャンセルされると順に停止します。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.cfg.HTTPListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.HTTPListenAddr, err)
	}

	var grpcLis net.Listener
	if s.grpcServer != nil {
		grpcLis, err = net.Listen("tcp", s.cfg.GRPCListenAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("listen on %s: %w", s.cfg.GRPCListenAddr, err)
		}
	}

	return s.serve(ctx, httpLis, grpcLis)
}

func (s *Server) serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.probe != nil {
		g.Go(func() error {
			s.probe.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		s.log.Info().Str("addr", httpLis.Addr().String()).Msg("http server listening")
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			s.log.Info().Str("addr", grpcLis.Addr().String()).Msg("grpc health server listening")
			if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	s.log.Info().Dur("timeout", s.cfg.ShutdownTimeout).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if s.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			// Watch ストリームが残っていると GracefulStop が戻らないため強制停止します。
			s.grpcServer.Stop()
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
