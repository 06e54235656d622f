package rpc

import (
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial создаёт клиентское соединение к внутреннему сервису с метриками вызовов.
// Соединение ленивое: ошибки сети проявляются при первом вызове.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(promgrpc.UnaryClientInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	return grpc.NewClient(target, append(base, opts...)...)
}
