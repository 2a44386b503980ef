package models

import "errors"

var (
	// ErrValidation - отсутствует или пустое обязательное поле
	ErrValidation = errors.New("validation error")
	// ErrNotFound - инцидент с таким id не существует
	ErrNotFound = errors.New("incident not found")
	// ErrClassifierUnavailable - модель не загружена
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrStore - ошибка хранилища
	ErrStore = errors.New("store failure")
)
