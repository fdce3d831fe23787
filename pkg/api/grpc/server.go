// Package grpcapi exposes the calculator as the intcalc.v1.Calculator gRPC
// service. Requests and responses use well-known protobuf types so no
// generated code is needed on either side.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/intcalc/pkg/expr"
	"github.com/lemonberrylabs/intcalc/pkg/runtime"
	"github.com/lemonberrylabs/intcalc/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "intcalc.v1.Calculator"

const (
	evaluateMethod = "/" + ServiceName + "/Evaluate"
	tokenizeMethod = "/" + ServiceName + "/Tokenize"
)

// CalculatorServer is the server API for the Calculator service.
type CalculatorServer interface {
	Evaluate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Tokenize(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

var calculatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CalculatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "Tokenize", Handler: tokenizeHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CalculatorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CalculatorServer).Evaluate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func tokenizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CalculatorServer).Tokenize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: tokenizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CalculatorServer).Tokenize(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements the Calculator gRPC service.
type Server struct {
	engine *runtime.Engine
	logger zerolog.Logger
	grpc   *grpc.Server
}

// New creates a new gRPC server evaluating with engine.
func New(engine *runtime.Engine, logger zerolog.Logger) *Server {
	srv := &Server{engine: engine, logger: logger}

	gs := grpc.NewServer(grpc.UnaryInterceptor(srv.logCall))
	gs.RegisterService(&calculatorServiceDesc, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func (s *Server) logCall(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	s.logger.Debug().Str("method", info.FullMethod).Str("code", status.Code(err).String()).Msg("grpc call")
	return resp, err
}

// Evaluate evaluates the expression and returns its value, tokens and
// diagnostics. Evaluation failures map to gRPC status codes.
func (s *Server) Evaluate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "expression is required")
	}

	res, err := s.engine.Execute(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	diags := make([]any, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		diags[i] = map[string]any{"tag": d.Tag, "message": d.Message}
	}
	fields := map[string]any{
		"expression":  res.Expression,
		"value":       fmt.Sprint(res.Value), // structpb numbers are float64
		"tokens":      tokenList(res.Tokens),
		"diagnostics": diags,
	}
	if res.ID != "" {
		fields["id"] = res.ID
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

// Tokenize runs only the lexer over the expression.
func (s *Server) Tokenize(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	lexer := expr.NewLexer(zerolog.Nop())
	tokens := lexer.Tokenize(req.GetValue())

	dropped := make([]any, len(lexer.Dropped()))
	for i, d := range lexer.Dropped() {
		dropped[i] = d.String()
	}
	out, err := structpb.NewStruct(map[string]any{
		"tokens":  tokenList(tokens),
		"dropped": dropped,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

func tokenList(tokens []expr.Token) []any {
	out := make([]any, len(tokens))
	for i, tok := range tokens {
		out[i] = map[string]any{"kind": tok.Type.String(), "text": tok.Value}
	}
	return out
}

func toStatus(err error) error {
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	ce, ok := types.AsCalcError(err)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	switch ce.Code {
	case http.StatusBadRequest:
		return status.Error(codes.InvalidArgument, ce.Message)
	case http.StatusUnprocessableEntity:
		return status.Error(codes.FailedPrecondition, ce.Message)
	case http.StatusRequestEntityTooLarge:
		return status.Error(codes.OutOfRange, ce.Message)
	case http.StatusNotFound:
		return status.Error(codes.NotFound, ce.Message)
	default:
		return status.Error(codes.Unknown, ce.Message)
	}
}

// Client calls the Calculator service over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Evaluate calls Calculator/Evaluate.
func (c *Client) Evaluate(ctx context.Context, expression string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, evaluateMethod, wrapperspb.String(expression), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Tokenize calls Calculator/Tokenize.
func (c *Client) Tokenize(ctx context.Context, expression string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, tokenizeMethod, wrapperspb.String(expression), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
