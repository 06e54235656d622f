// Package paymentsv1 описывает используемую часть контракта payments.v1.PaymentsService.
package paymentsv1

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/orders/internal/rpc"
)

const ServiceName = "payments.v1.PaymentsService"

const CreatePaymentSessionFullMethodName = "/" + ServiceName + "/CreatePaymentSession"

// SessionItem - позиция платёжной сессии.
type SessionItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
}

// CreatePaymentSessionRequest - запрос на создание сессии.
type CreatePaymentSessionRequest struct {
	OrderID  string        `json:"orderId"`
	Currency string        `json:"currency"`
	Items    []SessionItem `json:"items"`
}

// PaymentsServiceServer возвращает описание сессии в формате провайдера.
type PaymentsServiceServer interface {
	CreatePaymentSession(context.Context, *CreatePaymentSessionRequest) (*structpb.Struct, error)
}

var PaymentsService_ServiceDesc = grpc.ServiceDesc{ //nolint:revive // имя в стиле сгенерированного кода
	ServiceName: ServiceName,
	HandlerType: (*PaymentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreatePaymentSession",
			Handler:    rpc.UnaryHandler(CreatePaymentSessionFullMethodName, PaymentsServiceServer.CreatePaymentSession),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payments/v1/payments",
}

func RegisterPaymentsServiceServer(s grpc.ServiceRegistrar, srv PaymentsServiceServer) {
	s.RegisterService(&PaymentsService_ServiceDesc, srv)
}

type PaymentsServiceClient interface {
	CreatePaymentSession(ctx context.Context, in *CreatePaymentSessionRequest, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type paymentsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPaymentsServiceClient(cc grpc.ClientConnInterface) PaymentsServiceClient {
	return &paymentsServiceClient{cc: cc}
}

func (c *paymentsServiceClient) CreatePaymentSession(ctx context.Context, in *CreatePaymentSessionRequest, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke[structpb.Struct](ctx, c.cc, CreatePaymentSessionFullMethodName, in, opts...)
}
