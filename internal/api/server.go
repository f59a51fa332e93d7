package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"schoollend/internal/config"
	"schoollend/internal/scanner"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ScannerServiceName  = "schoollend.scanner.v1.ScannerService"
	ScannerLookupMethod = "/" + ScannerServiceName + "/Lookup"
	ScannerScanMethod   = "/" + ScannerServiceName + "/Scan"
)

// ScannerServer is the gRPC face of the pickup desk scanner.
// Requests and responses use well-known protobuf types, so no generated code is needed.
type ScannerServer interface {
	Lookup(ctx context.Context, code *wrapperspb.StringValue) (*structpb.Struct, error)
	Scan(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error)
}

var scannerServiceDesc = grpc.ServiceDesc{
	ServiceName: ScannerServiceName,
	HandlerType: (*ScannerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Lookup", Handler: scannerLookupHandler},
		{MethodName: "Scan", Handler: scannerScanHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "schoollend/scanner/v1/scanner.proto",
}

func scannerLookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScannerServer).Lookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ScannerLookupMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScannerServer).Lookup(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func scannerScanHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScannerServer).Scan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ScannerScanMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScannerServer).Scan(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// scannerService adapts ScannerService to ScannerServer.
type scannerService struct {
	scanner ScannerService
}

func (s *scannerService) Lookup(ctx context.Context, code *wrapperspb.StringValue) (*structpb.Struct, error) {
	result, err := s.scanner.Lookup(ctx, code.GetValue())
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}
	return resultToStruct(result)
}

func (s *scannerService) Scan(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	result, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}
	return resultToStruct(result)
}

func resultToStruct(result *scanner.Result) (*structpb.Struct, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, status.Errorf(grpcCode(err), "encode result: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Errorf(grpcCode(err), "encode result: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(grpcCode(err), "encode result: %v", err)
	}
	return out, nil
}

// ScannerClient calls ScannerService over an existing connection.
type ScannerClient struct {
	cc grpc.ClientConnInterface
}

func NewScannerClient(cc grpc.ClientConnInterface) *ScannerClient {
	return &ScannerClient{cc: cc}
}

func (c *ScannerClient) Lookup(ctx context.Context, code string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ScannerLookupMethod, wrapperspb.String(code), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScannerClient) Scan(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ScannerScanMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type GRPCServer struct {
	cfg      config.APIConfig
	server   *grpc.Server
	listener net.Listener
	log      zerolog.Logger
}

func NewGRPCServer(cfg config.APIConfig, scan ScannerService, logger *zerolog.Logger) (*GRPCServer, error) {
	addr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
	}
	return newGRPCServer(cfg, lis, scan, logger), nil
}

func newGRPCServer(cfg config.APIConfig, lis net.Listener, scan ScannerService, logger *zerolog.Logger) *GRPCServer {
	unary := ChainUnaryInterceptors(
		LoggingUnaryInterceptor(logger),
		RateLimitUnaryInterceptor(newRateLimiter(cfg.RateLimit)),
	)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(unary))
	grpcServer.RegisterService(&scannerServiceDesc, &scannerService{scanner: scan})

	if cfg.GRPC.Reflection {
		reflection.Register(grpcServer)
	}

	serverLogger := zerolog.Nop()
	if logger != nil {
		serverLogger = logger.With().Str("component", "grpc").Logger()
	}

	return &GRPCServer{
		cfg:      cfg,
		server:   grpcServer,
		listener: lis,
		log:      serverLogger,
	}
}

func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *GRPCServer) Serve() error {
	s.log.Info().Str("addr", s.Addr()).Msg("gRPC API listening")
	return s.server.Serve(s.listener)
}

func (s *GRPCServer) Shutdown(ctx context.Context) {
	if s.server == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
	case <-time.After(10 * time.Second):
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
	}
}
