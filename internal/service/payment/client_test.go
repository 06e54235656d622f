package payment

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
	"github.com/vladislavdragonenkov/orders/internal/rpc/paymentsv1"
)

type fakePaymentsServer struct {
	session map[string]any
	err     error
	got     *paymentsv1.CreatePaymentSessionRequest
}

func (f *fakePaymentsServer) CreatePaymentSession(_ context.Context, req *paymentsv1.CreatePaymentSessionRequest) (*structpb.Struct, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return structpb.NewStruct(f.session)
}

func dialFake(t *testing.T, srv paymentsv1.PaymentsServiceServer) *grpc.ClientConn {
	t.Helper()

	listener := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	paymentsv1.RegisterPaymentsServiceServer(server, srv)
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return listener.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger.WithField("component", "test")
}

func TestClient_CreatePaymentSession(t *testing.T) {
	fake := &fakePaymentsServer{session: map[string]any{
		"url":       "https://checkout.example.com/s/42",
		"cancelUrl": "https://shop.example.com/cancel",
		"expiresAt": float64(1700000000),
	}}
	client := NewClient(dialFake(t, fake), time.Second, testLogger())

	session, err := client.CreatePaymentSession(context.Background(), domain.PaymentSessionRequest{
		OrderID:  "order-1",
		Currency: domain.PaymentCurrency,
		Items: []domain.PaymentSessionItem{
			{Name: "Widget", Price: decimal.RequireFromString("19.99"), Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "https://checkout.example.com/s/42", session["url"])
	require.Equal(t, float64(1700000000), session["expiresAt"])

	require.NotNil(t, fake.got)
	require.Equal(t, "order-1", fake.got.OrderID)
	require.Equal(t, "usd", fake.got.Currency)
	require.Len(t, fake.got.Items, 1)
	require.True(t, fake.got.Items[0].Price.Equal(decimal.RequireFromString("19.99")))
}

func TestClient_PropagatesUpstreamError(t *testing.T) {
	fake := &fakePaymentsServer{err: rpc.NewError(http.StatusPaymentRequired, "card declined")}
	client := NewClient(dialFake(t, fake), time.Second, testLogger())

	_, err := client.CreatePaymentSession(context.Background(), domain.PaymentSessionRequest{OrderID: "order-1"})
	upstream, ok := domain.AsUpstream(err)
	require.True(t, ok)
	require.Equal(t, ServiceName, upstream.Service)
	require.Equal(t, http.StatusPaymentRequired, upstream.StatusCode)
	require.Equal(t, "card declined", upstream.Message)
}

func TestMockService(t *testing.T) {
	mock := NewMockService()

	session, err := mock.CreatePaymentSession(context.Background(), domain.PaymentSessionRequest{OrderID: "o-1"})
	require.NoError(t, err)
	require.Equal(t, "o-1", session["orderId"])
	require.NotEmpty(t, session["url"])

	mock.Err = errors.New("payments down")
	_, err = mock.CreatePaymentSession(context.Background(), domain.PaymentSessionRequest{OrderID: "o-2"})
	require.Error(t, err)
	require.Equal(t, 2, mock.Calls)
	require.Equal(t, "o-2", mock.LastRequest.OrderID)
}
