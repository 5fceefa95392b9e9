// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorForbidden     = "FORBIDDEN"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// 会话相关错误
	ErrorSessionNotFound  = "SESSION_NOT_FOUND"
	ErrorSessionCompleted = "SESSION_COMPLETED"
	ErrorMessageInvalid   = "MESSAGE_INVALID"

	// 存档相关错误
	ErrorSlotNotFound = "SLOT_NOT_FOUND"
	ErrorSlotInvalid  = "SLOT_INVALID"
	ErrorStorage      = "STORAGE_ERROR"

	// 依赖与配置
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorConfigInvalid         = "CONFIG_INVALID"
)
