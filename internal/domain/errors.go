package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrProductIDRequired = errors.New("item product_id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции не положительная.
	ErrItemPriceInvalid = errors.New("item unit price must be greater than zero")
	// ErrItemPriceScale — цена товара точнее копейки и не помещается в денежные колонки.
	ErrItemPriceScale = errors.New("item unit price must have at most 2 decimal places")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total amount must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total amount does not match items sum")
	// Ошибка несоответствия количества единиц и позиций.
	ErrTotalItemsMismatch = errors.New("order total items does not match items quantity")
	// ErrProductNotFound — сервис товаров не подтвердил часть идентификаторов.
	ErrProductNotFound = errors.New("products not found")
	// ErrOrderIDRequired — не передан идентификатор заказа.
	ErrOrderIDRequired = errors.New("order id is required")
	// ErrOrderStatusInvalid — статус не входит в список допустимых значений.
	ErrOrderStatusInvalid = errors.New("invalid order status")
	// ErrStatusTransition — переход между статусами не разрешён жизненным циклом.
	ErrStatusTransition = errors.New("order status transition is not allowed")
	// ErrPaginationInvalid — некорректные параметры страницы.
	ErrPaginationInvalid = errors.New("page and limit must be greater than zero")
	// ErrPaymentReferenceRequired — в уведомлении об оплате нет ссылки на платёж.
	ErrPaymentReferenceRequired = errors.New("stripe payment id is required")
	// ErrReceiptURLRequired — в уведомлении об оплате нет ссылки на чек.
	ErrReceiptURLRequired = errors.New("receipt url is required")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists — заказ с таким ID уже сохранён.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderAlreadyPaid — повторное подтверждение оплаты уже оплаченного заказа.
	ErrOrderAlreadyPaid = errors.New("order already paid")
)

// UpstreamError описывает отказ внешнего сервиса (товары, платежи) и сохраняет его код ответа.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s service: %s (status %d)", e.Service, e.Message, e.StatusCode)
}

// IsValidation проверяет, относится ли ошибка к ошибкам входных данных.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrItemsRequired),
		errors.Is(err, ErrProductIDRequired),
		errors.Is(err, ErrItemQtyInvalid),
		errors.Is(err, ErrItemPriceInvalid),
		errors.Is(err, ErrItemPriceScale),
		errors.Is(err, ErrAmountNegative),
		errors.Is(err, ErrAmountMismatch),
		errors.Is(err, ErrTotalItemsMismatch),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrOrderIDRequired),
		errors.Is(err, ErrOrderStatusInvalid),
		errors.Is(err, ErrStatusTransition),
		errors.Is(err, ErrPaginationInvalid),
		errors.Is(err, ErrPaymentReferenceRequired),
		errors.Is(err, ErrReceiptURLRequired):
		return true
	default:
		return false
	}
}

// IsNotFound проверяет, что ошибка означает отсутствие заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// AsUpstream извлекает UpstreamError из цепочки ошибок.
func AsUpstream(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}
