package domain

import "errors"

var (
	// ErrAuthRequired возвращается, когда действие требует входа.
	// Сетевой вызов при этом не выполняется.
	ErrAuthRequired = errors.New("требуется авторизация")
	// ErrEmptyContent возвращается для пустого текста комментария или поста.
	ErrEmptyContent = errors.New("пустой текст")
	// ErrNotFound соответствует ответу 404 бэкенда. Для операций
	// удаления трактуется как успешное конечное состояние.
	ErrNotFound = errors.New("запись не найдена")
	// ErrUnknownActivity возвращается диспетчером для неизвестного типа записи.
	ErrUnknownActivity = errors.New("неизвестный тип записи")
)
