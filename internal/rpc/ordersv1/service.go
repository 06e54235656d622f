package ordersv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/orders/internal/rpc"
)

// ServiceName - полное имя gRPC-сервиса заказов.
const ServiceName = "orders.v1.OrdersService"

const (
	CreateOrderFullMethodName          = "/" + ServiceName + "/CreateOrder"
	FindAllOrdersFullMethodName        = "/" + ServiceName + "/FindAllOrders"
	FindOneOrderFullMethodName         = "/" + ServiceName + "/FindOneOrder"
	ChangeOrderStatusFullMethodName    = "/" + ServiceName + "/ChangeOrderStatus"
	CreatePaymentSessionFullMethodName = "/" + ServiceName + "/CreatePaymentSession"
	PaidOrderFullMethodName            = "/" + ServiceName + "/PaidOrder"
)

// OrdersServiceServer - серверная часть контракта.
type OrdersServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*Order, error)
	FindAllOrders(context.Context, *FindAllOrdersRequest) (*FindAllOrdersResponse, error)
	FindOneOrder(context.Context, *FindOneOrderRequest) (*Order, error)
	ChangeOrderStatus(context.Context, *ChangeOrderStatusRequest) (*Order, error)
	CreatePaymentSession(context.Context, *Order) (*structpb.Struct, error)
	PaidOrder(context.Context, *PaidOrderRequest) (*Order, error)
}

// OrdersService_ServiceDesc описывает сервис для grpc.Server.
var OrdersService_ServiceDesc = grpc.ServiceDesc{ //nolint:revive // имя в стиле сгенерированного кода
	ServiceName: ServiceName,
	HandlerType: (*OrdersServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateOrder",
			Handler:    rpc.UnaryHandler(CreateOrderFullMethodName, OrdersServiceServer.CreateOrder),
		},
		{
			MethodName: "FindAllOrders",
			Handler:    rpc.UnaryHandler(FindAllOrdersFullMethodName, OrdersServiceServer.FindAllOrders),
		},
		{
			MethodName: "FindOneOrder",
			Handler:    rpc.UnaryHandler(FindOneOrderFullMethodName, OrdersServiceServer.FindOneOrder),
		},
		{
			MethodName: "ChangeOrderStatus",
			Handler:    rpc.UnaryHandler(ChangeOrderStatusFullMethodName, OrdersServiceServer.ChangeOrderStatus),
		},
		{
			MethodName: "CreatePaymentSession",
			Handler:    rpc.UnaryHandler(CreatePaymentSessionFullMethodName, OrdersServiceServer.CreatePaymentSession),
		},
		{
			MethodName: "PaidOrder",
			Handler:    rpc.UnaryHandler(PaidOrderFullMethodName, OrdersServiceServer.PaidOrder),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orders/v1/orders",
}

// RegisterOrdersServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterOrdersServiceServer(s grpc.ServiceRegistrar, srv OrdersServiceServer) {
	s.RegisterService(&OrdersService_ServiceDesc, srv)
}

// OrdersServiceClient - клиентская часть контракта.
type OrdersServiceClient interface {
	CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*Order, error)
	FindAllOrders(ctx context.Context, in *FindAllOrdersRequest, opts ...grpc.CallOption) (*FindAllOrdersResponse, error)
	FindOneOrder(ctx context.Context, in *FindOneOrderRequest, opts ...grpc.CallOption) (*Order, error)
	ChangeOrderStatus(ctx context.Context, in *ChangeOrderStatusRequest, opts ...grpc.CallOption) (*Order, error)
	CreatePaymentSession(ctx context.Context, in *Order, opts ...grpc.CallOption) (*structpb.Struct, error)
	PaidOrder(ctx context.Context, in *PaidOrderRequest, opts ...grpc.CallOption) (*Order, error)
}

type ordersServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOrdersServiceClient создаёт клиента поверх соединения.
func NewOrdersServiceClient(cc grpc.ClientConnInterface) OrdersServiceClient {
	return &ordersServiceClient{cc: cc}
}

func (c *ordersServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*Order, error) {
	return rpc.Invoke[Order](ctx, c.cc, CreateOrderFullMethodName, in, opts...)
}

func (c *ordersServiceClient) FindAllOrders(ctx context.Context, in *FindAllOrdersRequest, opts ...grpc.CallOption) (*FindAllOrdersResponse, error) {
	return rpc.Invoke[FindAllOrdersResponse](ctx, c.cc, FindAllOrdersFullMethodName, in, opts...)
}

func (c *ordersServiceClient) FindOneOrder(ctx context.Context, in *FindOneOrderRequest, opts ...grpc.CallOption) (*Order, error) {
	return rpc.Invoke[Order](ctx, c.cc, FindOneOrderFullMethodName, in, opts...)
}

func (c *ordersServiceClient) ChangeOrderStatus(ctx context.Context, in *ChangeOrderStatusRequest, opts ...grpc.CallOption) (*Order, error) {
	return rpc.Invoke[Order](ctx, c.cc, ChangeOrderStatusFullMethodName, in, opts...)
}

func (c *ordersServiceClient) CreatePaymentSession(ctx context.Context, in *Order, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke[structpb.Struct](ctx, c.cc, CreatePaymentSessionFullMethodName, in, opts...)
}

func (c *ordersServiceClient) PaidOrder(ctx context.Context, in *PaidOrderRequest, opts ...grpc.CallOption) (*Order, error) {
	return rpc.Invoke[Order](ctx, c.cc, PaidOrderFullMethodName, in, opts...)
}
