package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryHandler строит grpc.MethodHandler для унарного метода сервиса S.
func UnaryHandler[S any, Req any, Resp any](fullMethod string, call func(S, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(S)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Invoke выполняет унарный вызов с JSON-кодеком.
func Invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, fullMethod string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}
