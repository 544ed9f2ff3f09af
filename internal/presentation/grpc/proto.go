package grpc

// proto.go defines the gRPC service surface of phishguard/v1/decision.proto
// in the shape protoc-gen-go-grpc would emit, over the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "phishguard.v1.DecisionService"

// Full method names, as seen by interceptors.
const (
	MethodScan           = "/" + ServiceName + "/Scan"
	MethodEvaluateDomain = "/" + ServiceName + "/EvaluateDomain"
	MethodSubmitFeedback = "/" + ServiceName + "/SubmitFeedback"
)

// DecisionServiceServer is the server API for DecisionService.
type DecisionServiceServer interface {
	Scan(context.Context, *ScanRequest) (*ScanResponse, error)
	EvaluateDomain(context.Context, *EvaluateDomainRequest) (*EvaluateDomainResponse, error)
	SubmitFeedback(context.Context, *SubmitFeedbackRequest) (*SubmitFeedbackResponse, error)
	mustEmbedUnimplementedDecisionServiceServer()
}

// UnimplementedDecisionServiceServer provides forward-compatible default implementations.
type UnimplementedDecisionServiceServer struct{}

func (UnimplementedDecisionServiceServer) Scan(context.Context, *ScanRequest) (*ScanResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Scan not implemented")
}
func (UnimplementedDecisionServiceServer) EvaluateDomain(context.Context, *EvaluateDomainRequest) (*EvaluateDomainResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EvaluateDomain not implemented")
}
func (UnimplementedDecisionServiceServer) SubmitFeedback(context.Context, *SubmitFeedbackRequest) (*SubmitFeedbackResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitFeedback not implemented")
}
func (UnimplementedDecisionServiceServer) mustEmbedUnimplementedDecisionServiceServer() {}

// RegisterDecisionServiceServer registers the DecisionServiceServer with the gRPC server.
func RegisterDecisionServiceServer(s grpclib.ServiceRegistrar, srv DecisionServiceServer) {
	s.RegisterService(&_DecisionService_serviceDesc, srv)
}

var _DecisionService_serviceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DecisionServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "Scan", Handler: _DecisionService_Scan_Handler},
		{MethodName: "EvaluateDomain", Handler: _DecisionService_EvaluateDomain_Handler},
		{MethodName: "SubmitFeedback", Handler: _DecisionService_SubmitFeedback_Handler},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "phishguard/v1/decision.proto",
}

func _DecisionService_Scan_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	req := new(ScanRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DecisionServiceServer).Scan(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodScan}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DecisionServiceServer).Scan(ctx, req.(*ScanRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _DecisionService_EvaluateDomain_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	req := new(EvaluateDomainRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DecisionServiceServer).EvaluateDomain(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodEvaluateDomain}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DecisionServiceServer).EvaluateDomain(ctx, req.(*EvaluateDomainRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _DecisionService_SubmitFeedback_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	req := new(SubmitFeedbackRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DecisionServiceServer).SubmitFeedback(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodSubmitFeedback}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DecisionServiceServer).SubmitFeedback(ctx, req.(*SubmitFeedbackRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// DecisionServiceClient is the client API for DecisionService.
type DecisionServiceClient interface {
	Scan(ctx context.Context, in *ScanRequest, opts ...grpclib.CallOption) (*ScanResponse, error)
	EvaluateDomain(ctx context.Context, in *EvaluateDomainRequest, opts ...grpclib.CallOption) (*EvaluateDomainResponse, error)
	SubmitFeedback(ctx context.Context, in *SubmitFeedbackRequest, opts ...grpclib.CallOption) (*SubmitFeedbackResponse, error)
}

type decisionServiceClient struct {
	cc grpclib.ClientConnInterface
}

// NewDecisionServiceClient creates a client that speaks the JSON codec.
func NewDecisionServiceClient(cc grpclib.ClientConnInterface) DecisionServiceClient {
	return &decisionServiceClient{cc: cc}
}

func (c *decisionServiceClient) Scan(ctx context.Context, in *ScanRequest, opts ...grpclib.CallOption) (*ScanResponse, error) {
	out := new(ScanResponse)
	if err := c.cc.Invoke(ctx, MethodScan, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *decisionServiceClient) EvaluateDomain(ctx context.Context, in *EvaluateDomainRequest, opts ...grpclib.CallOption) (*EvaluateDomainResponse, error) {
	out := new(EvaluateDomainResponse)
	if err := c.cc.Invoke(ctx, MethodEvaluateDomain, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *decisionServiceClient) SubmitFeedback(ctx context.Context, in *SubmitFeedbackRequest, opts ...grpclib.CallOption) (*SubmitFeedbackResponse, error) {
	out := new(SubmitFeedbackResponse)
	if err := c.cc.Invoke(ctx, MethodSubmitFeedback, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpclib.CallOption) []grpclib.CallOption {
	return append([]grpclib.CallOption{grpclib.CallContentSubtype(codecName)}, opts...)
}
