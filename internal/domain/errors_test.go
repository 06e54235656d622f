package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "items required",
			err:  ErrItemsRequired,
			want: true,
		},
		{
			name: "wrapped missing products",
			err:  fmt.Errorf("%w: A, B", ErrProductNotFound),
			want: true,
		},
		{
			name: "joined transition error",
			err:  errors.Join(ErrStatusTransition, errors.New("additional context")),
			want: true,
		},
		{
			name: "wrapped price scale",
			err:  fmt.Errorf("items[0]: %w: 0.333", ErrItemPriceScale),
			want: true,
		},
		{
			name: "not found is not validation",
			err:  ErrOrderNotFound,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidation(tt.err)
			if got != tt.want {
				t.Errorf("IsValidation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("load: %w", ErrOrderNotFound)) {
		t.Fatal("expected wrapped ErrOrderNotFound to be not found")
	}
	if IsNotFound(ErrOrderAlreadyPaid) {
		t.Fatal("ErrOrderAlreadyPaid must not be reported as not found")
	}
}

func TestAsUpstream(t *testing.T) {
	src := &UpstreamError{Service: "products", StatusCode: 503, Message: "connection refused"}
	wrapped := fmt.Errorf("validate products: %w", src)

	got, ok := AsUpstream(wrapped)
	if !ok {
		t.Fatal("expected upstream error to be extracted")
	}
	if got.StatusCode != 503 || got.Service != "products" {
		t.Fatalf("unexpected upstream error: %+v", got)
	}
	if got.Error() != "products service: connection refused (status 503)" {
		t.Fatalf("unexpected message: %s", got.Error())
	}

	if _, ok := AsUpstream(ErrOrderNotFound); ok {
		t.Fatal("plain error must not be upstream")
	}
}
