package domain

import (
	"errors"
	"strings"
)

var (
	// Ошибка отсутствующего ключа заказа.
	ErrOrderIDRequired = errors.New("orderId is required")
	// Ошибка отсутствующей суммы заказа.
	ErrValueRequired = errors.New("value is required")
	// Ошибка отрицательной суммы заказа.
	ErrValueNegative = errors.New("value must be non-negative")
	// Ошибка отсутствующей даты создания.
	ErrCreationDateRequired = errors.New("creationDate is required")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrItemProductRequired = errors.New("item productId must be greater than zero")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound возвращается, если позиция заказа не найдена.
	ErrItemNotFound = errors.New("order item not found")
	// ErrOrderAlreadyExists сигнализирует о повторном создании заказа с тем же ключом.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderNotCreated — репозиторий не вернул строку заказа после записи.
	ErrOrderNotCreated = errors.New("error creating order")

	// ErrUnauthorized — запрос без валидного bearer-токена.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials — неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("incorrect credentials")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// Kind — стабильная категория ошибки для программной обработки на границе сервиса.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalid
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// KindOf классифицирует ошибку. nil даёт KindUnknown, нераспознанная ошибка — KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var validationErr *ValidationError

	switch {
	case errors.As(err, &validationErr):
		return KindInvalid
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrItemNotFound):
		return KindNotFound
	case errors.Is(err, ErrOrderAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return KindForbidden
	default:
		// StoreError, ErrOrderNotCreated и всё неожиданное.
		return KindInternal
	}
}

// IsNotFound проверяет, является ли ошибка отсутствием заказа или позиции.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict проверяет, является ли ошибка дубликатом ключа заказа.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// ValidationError собирает все нарушения инвариантов входного агрегата.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap позволяет errors.Is находить конкретные нарушения.
func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

// StoreError оборачивает сбой хранилища (соединение, ограничение, драйвер).
// Такие ошибки фатальны для текущей операции и не повторяются.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError возвращает nil для nil-ошибки.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
