// Package productsv1 описывает используемую часть контракта products.v1.ProductsService.
package productsv1

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/orders/internal/rpc"
)

const ServiceName = "products.v1.ProductsService"

const ValidateProductsFullMethodName = "/" + ServiceName + "/ValidateProducts"

// Product - товар в ответе сервиса товаров.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ValidateProductsRequest - список идентификаторов товаров.
type ValidateProductsRequest []string

// ValidateProductsResponse - найденные товары.
type ValidateProductsResponse []Product

type ProductsServiceServer interface {
	ValidateProducts(context.Context, *ValidateProductsRequest) (*ValidateProductsResponse, error)
}

var ProductsService_ServiceDesc = grpc.ServiceDesc{ //nolint:revive // имя в стиле сгенерированного кода
	ServiceName: ServiceName,
	HandlerType: (*ProductsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ValidateProducts",
			Handler:    rpc.UnaryHandler(ValidateProductsFullMethodName, ProductsServiceServer.ValidateProducts),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "products/v1/products",
}

func RegisterProductsServiceServer(s grpc.ServiceRegistrar, srv ProductsServiceServer) {
	s.RegisterService(&ProductsService_ServiceDesc, srv)
}

type ProductsServiceClient interface {
	ValidateProducts(ctx context.Context, in *ValidateProductsRequest, opts ...grpc.CallOption) (*ValidateProductsResponse, error)
}

type productsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewProductsServiceClient(cc grpc.ClientConnInterface) ProductsServiceClient {
	return &productsServiceClient{cc: cc}
}

func (c *productsServiceClient) ValidateProducts(ctx context.Context, in *ValidateProductsRequest, opts ...grpc.CallOption) (*ValidateProductsResponse, error) {
	return rpc.Invoke[ValidateProductsResponse](ctx, c.cc, ValidateProductsFullMethodName, in, opts...)
}
