// Package grpc содержит gRPC сервер сервиса заметок со стандартной службой здоровья.
package grpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"notecache/internal/notes/config"
	"notecache/pkg/logger"
)

// Константы для логирования.
const (
	LogServerStarted  = "gRPC server started"
	LogServerStopping = "stopping gRPC server"
	ErrListen         = "failed to listen"
	ErrServe          = "failed to serve gRPC"
)

// Server представляет gRPC сервер.
type Server struct {
	server   *grpc.Server
	health   *health.Server
	address  string
	listener net.Listener
}

// New создает gRPC сервер с зарегистрированными health и reflection.
func New(cfg *config.GRPCConfig, opts ...grpc.ServerOption) *Server {
	s := &Server{
		server:  grpc.NewServer(opts...),
		health:  health.NewServer(),
		address: cfg.GetAddress(),
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)
	return s
}

// Health возвращает реализацию службы здоровья.
func (s *Server) Health() *health.Server {
	return s.health
}

// RegisterService регистрирует дополнительные gRPC сервисы.
func (s *Server) RegisterService(registerFunc func(*grpc.Server)) {
	registerFunc(s.server)
}

// Start открывает сокет и запускает обслуживание в фоне.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrListen, err)
	}
	s.Serve(ctx, listener)
	return nil
}

// Serve обслуживает готовый listener в фоне.
func (s *Server) Serve(ctx context.Context, listener net.Listener) {
	log := logger.Log(ctx)
	s.listener = listener

	log.Info(ctx, LogServerStarted, zap.String("address", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil {
			log.Error(ctx, ErrServe, zap.Error(err))
		}
	}()
}

// Stop переводит службы в NOT_SERVING и останавливает сервер.
func (s *Server) Stop(ctx context.Context) {
	logger.Log(ctx).Info(ctx, LogServerStopping)

	s.health.Shutdown()
	s.server.GracefulStop()
}
