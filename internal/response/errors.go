package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidQuery   ErrCode = "INVALID_QUERY"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrClassNotFound ErrCode = "CLASS_NOT_FOUND"
	ErrClassExists   ErrCode = "CLASS_ALREADY_EXISTS"

	// ─── Jobs ──────────────────────────────────────────────────────────
	ErrJobBusy      ErrCode = "JOB_ALREADY_RUNNING"
	ErrMailDelivery ErrCode = "MAIL_DELIVERY_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrStorage  ErrCode = "STORAGE_UNAVAILABLE"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Ошибка проверки данных. Проверьте введённые значения."
	case ErrInvalidPayload:
		return "Некорректное тело запроса."
	case ErrInvalidQuery:
		return "Некорректные параметры запроса."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrClassNotFound:
		return "Класс не найден."
	case ErrClassExists:
		return "Класс с таким названием уже существует."

	// ─── Jobs ──────────────────────────────────────────────────────────
	case ErrJobBusy:
		return "Задача уже выполняется."
	case ErrMailDelivery:
		return "Не удалось отправить письмо. Повторная попытка будет выполнена автоматически."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Слишком много запросов. Повторите попытку позже."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrStorage:
		return "Хранилище данных временно недоступно."
	case ErrInternal:
		return "Внутренняя ошибка сервера."
	default:
		return "Непредвиденная ошибка."
	}
}
