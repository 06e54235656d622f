package domain

const (
	// DefaultPage и DefaultLimit применяются, когда клиент не передал параметры страницы.
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRequest описывает запрос страницы заказов с необязательным фильтром по статусу.
type PageRequest struct {
	Page   int
	Limit  int
	Status OrderStatus
}

// Normalize подставляет значения по умолчанию для незаданных полей.
func (p PageRequest) Normalize() PageRequest {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// Validate проверяет границы страницы и статус фильтра.
func (p PageRequest) Validate() error {
	if p.Page < 1 || p.Limit < 1 {
		return ErrPaginationInvalid
	}
	if p.Status != "" && !p.Status.Valid() {
		return ErrOrderStatusInvalid
	}
	return nil
}

// Offset возвращает число пропускаемых записей.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta — метаданные страницы.
type PageMeta struct {
	Total    int
	Page     int
	LastPage int
}

// OrderPage — страница заказов.
type OrderPage struct {
	Data []Order
	Meta PageMeta
}

// LastPage вычисляет ceil(total/limit).
func LastPage(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ListFilter — параметры выборки из репозитория.
type ListFilter struct {
	Status OrderStatus
	Offset int
	Limit  int
}
