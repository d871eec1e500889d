package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest             ErrorCode = "BAD_REQUEST"
	ErrCodeConflict               ErrorCode = "CONFLICT"
	ErrCodeAlreadyClaimed         ErrorCode = "ALREADY_CLAIMED"
	ErrCodeInvalidState           ErrorCode = "INVALID_STATE"
	ErrCodeReportNotCleared       ErrorCode = "REPORT_NOT_CLEARED"
	ErrCodeNotOwner               ErrorCode = "NOT_OWNER"
	ErrCodeSelfVerification       ErrorCode = "SELF_VERIFICATION"
	ErrCodeInsufficientExperience ErrorCode = "INSUFFICIENT_EXPERIENCE"
	ErrCodeDuplicateVote          ErrorCode = "DUPLICATE_VOTE"
	ErrCodeCommentRequired        ErrorCode = "COMMENT_REQUIRED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeStoreUnavailable       ErrorCode = "STORE_UNAVAILABLE"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Unavailable оборачивает инфраструктурную ошибку хранилища.
// Это единственная категория, при которой клиент может повторить ту же операцию.
func Unavailable(err error, message string) *AppError {
	return Wrap(err, ErrCodeStoreUnavailable, message)
}

// InsufficientExperience уточняет ErrInsufficientExperience текущим порогом;
// errors.Is(err, ErrInsufficientExperience) остаётся истинным.
func InsufficientExperience(minClears int) *AppError {
	return &AppError{
		Code:       ErrCodeInsufficientExperience,
		Message:    fmt.Sprintf("для подтверждения нужно убранных отчётов: не менее %d", minClears),
		HTTPStatus: codeToHTTPStatus(ErrCodeInsufficientExperience),
		Cause:      ErrInsufficientExperience,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeNotOwner, ErrCodeSelfVerification, ErrCodeInsufficientExperience:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeCommentRequired:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeAlreadyClaimed, ErrCodeInvalidState, ErrCodeReportNotCleared, ErrCodeDuplicateVote:
		return http.StatusConflict
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или INTERNAL_ERROR для посторонних ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeValidation
}

// IsConflict сообщает, что параллельный переход выиграл гонку.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case ErrCodeConflict, ErrCodeAlreadyClaimed, ErrCodeInvalidState, ErrCodeReportNotCleared:
		return true
	}
	return false
}

// IsRetryable сообщает, можно ли безопасно повторить ту же операцию.
func IsRetryable(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeStoreUnavailable
}

var (
	ErrReportNotFound         = New(ErrCodeNotFound, "отчёт не найден")
	ErrUserNotFound           = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized           = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden              = New(ErrCodeForbidden, "недостаточно прав")
	ErrEmailNotVerified       = New(ErrCodeForbidden, "для создания отчёта нужно подтвердить email")
	ErrCannotClaimOwnReport   = New(ErrCodeForbidden, "нельзя взять в работу собственный отчёт")
	ErrStatusConflict         = New(ErrCodeConflict, "статус отчёта изменился, обновите данные")
	ErrIllegalTransition      = New(ErrCodeInvalidState, "недопустимый переход статуса отчёта")
	ErrAlreadyClaimed         = New(ErrCodeAlreadyClaimed, "кто-то уже взял этот отчёт в работу")
	ErrInvalidState           = New(ErrCodeInvalidState, "действие недоступно в текущем статусе отчёта")
	ErrReportNotCleared       = New(ErrCodeReportNotCleared, "подтверждать можно только убранные отчёты")
	ErrNotOwner               = New(ErrCodeNotOwner, "отчёт взят в работу другим пользователем")
	ErrSelfVerification       = New(ErrCodeSelfVerification, "нельзя подтверждать собственную уборку")
	ErrInsufficientExperience = New(ErrCodeInsufficientExperience, "недостаточно убранных отчётов для подтверждения")
	ErrDuplicateVote          = New(ErrCodeDuplicateVote, "вы уже голосовали по этому отчёту")
	ErrCommentRequired        = New(ErrCodeCommentRequired, "для отрицательного голоса нужен комментарий")
	ErrPhotoRequired          = New(ErrCodeValidation, "фото после уборки обязательно")
	ErrDuplicateScoreEvent    = New(ErrCodeConflict, "событие начисления уже применено")
)
