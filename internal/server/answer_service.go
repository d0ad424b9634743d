package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/practice2025/supportai/internal/auth"
	"github.com/practice2025/supportai/internal/service"
)

const (
	AnswerServiceName = "supportai.v1.AnswerService"
	AnswerMethod      = "/" + AnswerServiceName + "/Answer"
)

// AnswerServiceServer answers queries carried as JSON-shaped structs.
// Fields mirror the HTTP body: query, context, user_id in; answer, sources, success out.
type AnswerServiceServer interface {
	Answer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var answerServiceDesc = grpc.ServiceDesc{
	ServiceName: AnswerServiceName,
	HandlerType: (*AnswerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Answer",
			Handler:    answerHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "supportai/v1/answer.proto",
}

// RegisterAnswerServiceServer registers srv with s
func RegisterAnswerServiceServer(s grpc.ServiceRegistrar, srv AnswerServiceServer) {
	s.RegisterService(&answerServiceDesc, srv)
}

func answerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnswerServiceServer).Answer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AnswerMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnswerServiceServer).Answer(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type answerServer struct {
	answerer Answerer
}

// NewAnswerServiceServer adapts an Answerer to the gRPC service
func NewAnswerServiceServer(answerer Answerer) AnswerServiceServer {
	return &answerServer{answerer: answerer}
}

func (s *answerServer) Answer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req service.AnswerRequest
	if err := convertStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if req.UserID == "" {
		if userID, ok := auth.UserIDFromContext(ctx); ok {
			req.UserID = userID
		}
	}

	resp := s.answerer.Answer(ctx, req)

	out, err := toStruct(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// AnswerClient calls AnswerService over a client connection
type AnswerClient struct {
	cc grpc.ClientConnInterface
}

// NewAnswerClient creates a client for AnswerService
func NewAnswerClient(cc grpc.ClientConnInterface) *AnswerClient {
	return &AnswerClient{cc: cc}
}

// Answer sends req and decodes the response
func (c *AnswerClient) Answer(ctx context.Context, req service.AnswerRequest, opts ...grpc.CallOption) (service.AnswerResponse, error) {
	var resp service.AnswerResponse

	in, err := toStruct(req)
	if err != nil {
		return resp, fmt.Errorf("failed to encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AnswerMethod, in, out, opts...); err != nil {
		return resp, err
	}
	if err := convertStruct(out, &resp); err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return out, nil
}

func convertStruct(in *structpb.Struct, v any) error {
	data, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
