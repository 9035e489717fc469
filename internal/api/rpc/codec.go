// Package rpc holds what the gRPC services share: the JSON codec, caller
// identity from metadata, error codes and the unary handler adapter.
package rpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallOption makes a client call use the JSON codec.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}

// Unary adapts a typed method to grpc.MethodHandler, running interceptors the
// way generated code does.
func Unary[S any, Req any, Resp any](fullMethod string, fn func(S, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			resp, err := fn(srv.(S), ctx, in)
			return resp, err
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			resp, err := fn(srv.(S), ctx, req.(*Req))
			return resp, err
		}
		return interceptor(ctx, in, info, handler)
	}
}
