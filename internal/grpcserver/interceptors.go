package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medialib/internal/logging"
)

var log = logging.New("grpc")

// LoggingInterceptor logs method, duration and error of every unary call.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		log.Warn("%s failed after %s: %v", info.FullMethod, time.Since(start), err)
	} else {
		log.Debug("%s ok in %s", info.FullMethod, time.Since(start))
	}
	return resp, err
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in %s: %v\n%s", info.FullMethod, r, debug.Stack())
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// NewGRPCServer returns a grpc.Server with srv registered behind the
// recovery and logging interceptors.
func NewGRPCServer(srv SearchServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(RecoveryInterceptor, LoggingInterceptor))
	g := grpc.NewServer(opts...)
	RegisterSearchServer(g, srv)
	return g
}
