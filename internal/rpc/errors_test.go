package rpc_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("items[0]: %w", domain.ErrItemQtyInvalid), want: http.StatusBadRequest},
		{name: "price scale", err: fmt.Errorf("items[0]: %w: 0.333", domain.ErrItemPriceScale), want: http.StatusBadRequest},
		{name: "missing products", err: fmt.Errorf("%w: A", domain.ErrProductNotFound), want: http.StatusBadRequest},
		{name: "transition", err: domain.ErrStatusTransition, want: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("load: %w", domain.ErrOrderNotFound), want: http.StatusNotFound},
		{name: "conflict", err: domain.ErrOrderAlreadyExists, want: http.StatusConflict},
		{name: "upstream", err: &domain.UpstreamError{Service: "products", StatusCode: 418, Message: "teapot"}, want: 418},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "storage", err: errors.New("connection reset"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rpc.FromDomain(tt.err)
			require.NotNil(t, got)
			require.Equal(t, tt.want, got.StatusCode)
			require.NotEmpty(t, got.Message)
			require.NotEmpty(t, got.Timestamp)
		})
	}

	require.Nil(t, rpc.FromDomain(nil))
}

func TestFromDomain_HidesInternalDetails(t *testing.T) {
	got := rpc.FromDomain(errors.New("pq: password authentication failed"))
	require.Equal(t, "internal server error", got.Message)
}

func TestFromDomain_UpstreamMessagePreserved(t *testing.T) {
	got := rpc.FromDomain(fmt.Errorf("validate: %w", &domain.UpstreamError{Service: "products", StatusCode: http.StatusBadRequest, Message: "Products were not found"}))
	require.Equal(t, http.StatusBadRequest, got.StatusCode)
	require.Equal(t, "Products were not found", got.Message)
}

func TestStatusRoundTrip(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, 418, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			err := rpc.NewError(code, "boom").GRPCStatus().Err()
			st, ok := status.FromError(err)
			require.True(t, ok)
			require.Equal(t, rpc.CodeFromHTTPStatus(code), st.Code())

			decoded := rpc.FromStatus(err)
			require.Equal(t, code, decoded.StatusCode)
			require.Equal(t, "boom", decoded.Message)
		})
	}
}

func TestStatusError(t *testing.T) {
	err := rpc.StatusError(domain.ErrOrderNotFound)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st.Code())
	require.Equal(t, domain.ErrOrderNotFound.Error(), st.Message())

	require.NoError(t, rpc.StatusError(nil))
}

func TestFromStatus_NonNumericStatusCode(t *testing.T) {
	st, err := status.New(codes.Internal, "bad payload").WithDetails(&errdetails.ErrorInfo{
		Reason:   "BAD",
		Domain:   "products",
		Metadata: map[string]string{rpc.StatusCodeKey: "not-a-number"},
	})
	require.NoError(t, err)

	decoded := rpc.FromStatus(st.Err())
	require.Equal(t, http.StatusBadRequest, decoded.StatusCode)
	require.Equal(t, "bad payload", decoded.Message)
}

func TestFromStatus_WithoutDetails(t *testing.T) {
	tests := []struct {
		code codes.Code
		want int
	}{
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.NotFound, http.StatusNotFound},
		{codes.Unavailable, http.StatusServiceUnavailable},
		{codes.DeadlineExceeded, http.StatusGatewayTimeout},
		{codes.Unknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		decoded := rpc.FromStatus(status.Error(tt.code, "upstream"))
		require.Equal(t, tt.want, decoded.StatusCode, tt.code.String())
	}

	require.Equal(t, http.StatusGatewayTimeout, rpc.FromStatus(context.DeadlineExceeded).StatusCode)
	require.Nil(t, rpc.FromStatus(nil))
}
