package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Errores del motor de inventario (taxonomía del kardex).
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrUnknownConcept     = errors.New("concepto de movimiento desconocido")
	ErrInvalidQuantity    = errors.New("la cantidad debe ser una magnitud positiva")
	ErrConcurrencyTimeout = errors.New("no se pudo adquirir el lock por clave en el tiempo límite")
	ErrStorageFailure     = errors.New("fallo de almacenamiento al persistir el movimiento")
)
