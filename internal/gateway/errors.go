package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/rpc"
)

// NewErrorHandler отдаёт любую ошибку в формате {statusCode, message, timestamp}.
// HTTP-статус ответа совпадает со statusCode ошибки.
func NewErrorHandler(logger *log.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		rpcErr := toRPCError(err)
		if rpcErr.StatusCode >= http.StatusInternalServerError {
			logger.WithError(err).WithFields(log.Fields{
				"method":      c.Request().Method,
				"path":        c.Path(),
				"status_code": rpcErr.StatusCode,
			}).Error("http request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(rpcErr.StatusCode)
		} else {
			err = c.JSON(rpcErr.StatusCode, rpcErr)
		}
		if err != nil {
			logger.WithError(err).Error("failed to write error response")
		}
	}
}

func toRPCError(err error) *rpc.Error {
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if httpErr.Message != nil {
			message = fmt.Sprint(httpErr.Message)
		}
		return rpc.NewError(httpErr.Code, message)
	}

	return rpc.FromStatus(err)
}
