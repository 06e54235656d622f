package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const (
	// ErrorDomain — домен в google.rpc.ErrorInfo.
	ErrorDomain = "orders"
	// StatusCodeKey — ключ метаданных ErrorInfo с HTTP-кодом ошибки.
	StatusCodeKey = "statusCode"

	internalMessage = "internal server error"
)

// Error — единый формат ошибки на границах RPC, HTTP и обработчиков сообщений.
type Error struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// NewError создаёт ошибку с текущей отметкой времени.
func NewError(statusCode int, message string) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.StatusCode, e.Message)
}

// GRPCStatus позволяет отдавать *Error прямо из gRPC-обработчиков.
func (e *Error) GRPCStatus() *status.Status {
	st := status.New(CodeFromHTTPStatus(e.StatusCode), e.Message)
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reasonFromHTTPStatus(e.StatusCode),
		Domain:   ErrorDomain,
		Metadata: map[string]string{StatusCodeKey: strconv.Itoa(e.StatusCode)},
	})
	if err != nil {
		return st
	}
	return detailed
}

// FromDomain переводит ошибку сервисного слоя в единый формат.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	if upstream, ok := domain.AsUpstream(err); ok {
		return NewError(upstream.StatusCode, upstream.Message)
	}

	switch {
	case domain.IsValidation(err):
		return NewError(http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		return NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderAlreadyExists):
		return NewError(http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(http.StatusGatewayTimeout, "request deadline exceeded")
	case errors.Is(err, context.Canceled):
		return NewError(http.StatusRequestTimeout, "request canceled")
	default:
		return NewError(http.StatusInternalServerError, internalMessage)
	}
}

// StatusError возвращает gRPC-ошибку для ответа клиенту.
func StatusError(err error) error {
	if err == nil {
		return nil
	}
	return FromDomain(err).GRPCStatus().Err()
}

// FromStatus разбирает ошибку, полученную от gRPC-сервиса.
// Нечисловой statusCode в деталях приводится к 400, при отсутствии деталей код выводится из gRPC-кода.
func FromStatus(err error) *Error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return NewError(http.StatusGatewayTimeout, err.Error())
		default:
			return NewError(http.StatusInternalServerError, err.Error())
		}
	}

	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok {
			continue
		}
		raw, present := info.GetMetadata()[StatusCodeKey]
		if !present {
			continue
		}
		code, convErr := strconv.Atoi(raw)
		if convErr != nil || code < 100 || code > 599 {
			code = http.StatusBadRequest
		}
		return NewError(code, st.Message())
	}

	return NewError(HTTPStatusFromCode(st.Code()), st.Message())
}

// HTTPStatusFromCode сопоставляет gRPC-код HTTP-статусу.
func HTTPStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.Canceled:
		return http.StatusRequestTimeout
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// CodeFromHTTPStatus сопоставляет HTTP-статус gRPC-коду.
func CodeFromHTTPStatus(statusCode int) codes.Code {
	switch statusCode {
	case http.StatusOK:
		return codes.OK
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusRequestTimeout:
		return codes.Canceled
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusNotImplemented:
		return codes.Unimplemented
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	}

	switch {
	case statusCode >= 400 && statusCode < 500:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func reasonFromHTTPStatus(statusCode int) string {
	if text := http.StatusText(statusCode); text != "" {
		return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
	}
	return "UNKNOWN"
}

// UpstreamError переводит ошибку вызова внешнего сервиса в domain.UpstreamError с сохранением кода.
func UpstreamError(service string, err error) error {
	if err == nil {
		return nil
	}
	decoded := FromStatus(err)
	return &domain.UpstreamError{
		Service:    service,
		StatusCode: decoded.StatusCode,
		Message:    decoded.Message,
	}
}
