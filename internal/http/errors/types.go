package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Error original (causa), útil para logs
}

// Error implementa la interfaz error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is permite comparar contra los errores predefinidos del catálogo por Code,
// de modo que errors.Is(err, ErrInvalidState) funcione a través de copias
// creadas con WithDetail/WithCause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New crea un nuevo AppError.
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// FromError intenta convertir un error genérico en un AppError.
// Si no es un AppError, devuelve un error interno genérico conservando
// el error original.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// WithDetail agrega detalles adicionales al error.
// Devuelve una COPIA del error para no mutar las variables globales base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa).
// Devuelve una COPIA del error.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	// ─── Flujo de autorización OAuth ───

	ErrInvalidState = &AppError{
		Code:       "INVALID_STATE",
		Message:    "El state es inválido, expiró o ya fue utilizado.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrPlatformMismatch = &AppError{
		Code:       "PLATFORM_MISMATCH",
		Message:    "La plataforma del callback no coincide con la registrada en el state.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrTokenExchangeFailed = &AppError{
		Code:       "TOKEN_EXCHANGE_FAILED",
		Message:    "El intercambio de código por tokens con el proveedor falló.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrProviderNotConfigured = &AppError{
		Code:       "PROVIDER_NOT_CONFIGURED",
		Message:    "El proveedor no tiene credenciales configuradas en este entorno.",
		HTTPStatus: http.StatusNotFound,
	}

	// ─── Credenciales ───

	ErrNoActiveCredential = &AppError{
		Code:       "NO_ACTIVE_CREDENTIAL",
		Message:    "No hay credencial activa para ese tenant y proveedor.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrCredentialInvalid = &AppError{
		Code:       "CREDENTIAL_INVALID",
		Message:    "La credencial fue revocada o expiró; se requiere reconectar la cuenta.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// ─── Publicación ───

	ErrContentInvalid = &AppError{
		Code:       "CONTENT_INVALID",
		Message:    "El contenido no cumple las restricciones de la plataforma.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrTransientProvider = &AppError{
		Code:       "TRANSIENT_PROVIDER_ERROR",
		Message:    "El proveedor devolvió un error transitorio al publicar.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrProviderRejected = &AppError{
		Code:       "PROVIDER_REJECTED",
		Message:    "El proveedor rechazó la publicación.",
		HTTPStatus: http.StatusBadGateway,
	}

	// ─── Gates ───

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Demasiadas solicitudes. Intente nuevamente más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInsufficientCredits = &AppError{
		Code:       "INSUFFICIENT_CREDITS",
		Message:    "Créditos insuficientes para realizar esta operación.",
		HTTPStatus: http.StatusPaymentRequired,
	}

	// ─── Genéricos ───

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "No autorizado. Se requiere autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Error interno del servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
