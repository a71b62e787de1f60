package entity

import "time"

// Resultados posibles de un intento de envío a la AEAT.
// PENDING: intento registrado antes de interpretar (o recibir) la respuesta.
// ERROR y los fallos de red se reintentan con backoff; REJECTED es terminal.
const (
	SubmissionPending           = "PENDING"
	SubmissionSubmitted         = "SUBMITTED"
	SubmissionAccepted          = "ACCEPTED"
	SubmissionPartiallyAccepted = "PARTIALLY_ACCEPTED"
	SubmissionRejected          = "REJECTED"
	SubmissionError             = "ERROR"
)

// SubmissionAttempt un intento de red de entrega de un LedgerEntry a la AEAT.
// Append-only: se insertan intentos nuevos con AttemptNumber creciente; un
// intento terminado no se edita nunca. La fila se inserta ANTES de la llamada
// de red (outcome PENDING) para que un fallo parcial no desaparezca en
// silencio, y una única escritura de cierre rellena los campos de respuesta.
type SubmissionAttempt struct {
	ID              string
	EntryID         string
	AttemptNumber   int
	RequestPayload  string // XML enviado, literal
	ResponsePayload string // cuerpo de respuesta, literal (vacío si la red falló)
	HTTPStatus      int    // 0 si la petición no llegó a completarse
	AuthorityRef    string // CSV asignado por la AEAT en caso de aceptación
	ErrorCode       string
	ErrorDesc       string
	Outcome         string // Submission*
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// IsTerminal indica si el intento cierra el ciclo de envío del registro.
func (a *SubmissionAttempt) IsTerminal() bool {
	return a.Outcome == SubmissionAccepted ||
		a.Outcome == SubmissionPartiallyAccepted ||
		a.Outcome == SubmissionRejected
}

// SubmissionState puntero derivado "último resultado" de un registro.
// Es la única fila mutable del subsistema de envíos: se actualiza al cierre de
// cada intento; el LedgerEntry y los intentos previos no se tocan.
type SubmissionState struct {
	EntryID      string
	Outcome      string // Submission*
	Attempts     int
	AuthorityRef string
	NextRetryAt  *time.Time // nil cuando el resultado es terminal
	UpdatedAt    time.Time
}

// IsRetryable indica si el registro debe volver a la cola de envío.
func (s *SubmissionState) IsRetryable() bool {
	return s.Outcome == SubmissionPending || s.Outcome == SubmissionError
}
