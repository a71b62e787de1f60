package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrUnauthorized   = errors.New("no autorizado")
	ErrForbidden      = errors.New("acceso denegado")
	ErrConflict       = errors.New("conflicto con el estado actual")
	ErrSeriesNotFound = errors.New("no existe contador de serie para la categoría y el ejercicio solicitados")
	ErrLockTimeout    = errors.New("timeout esperando el bloqueo del contador de serie")
	ErrNotFinalizable = errors.New("el documento no está en un estado finalizable")
	ErrChainBroken    = errors.New("cadena de registros rota: la huella recalculada no coincide")
)
