package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет профиля).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (повторная подпись, не тот контент и т.д.).
	ErrConflict = errors.New("resource state conflict")
)

// Ошибки сценария подтверждения обязательного контента
var (
	// ErrNotConfirmable - подтверждение недоступно, пока не выполнены условия для типа контента.
	ErrNotConfirmable = errors.New("confirmation is not available yet")

	// ErrQuizIncomplete - в квизе остались вопросы без выбранного ответа.
	ErrQuizIncomplete = errors.New("all quiz questions must be answered")

	// ErrConfirmationInProgress - подтверждение уже отправлено и ещё обрабатывается.
	ErrConfirmationInProgress = errors.New("confirmation already in progress")

	// ErrAlreadyConfirmed - для пары (контент, пользователь) уже есть успешная подпись.
	ErrAlreadyConfirmed = errors.New("content already confirmed")
)
