package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind clasifica los fallos del Remote Session Service.
type ErrorKind string

const (
	ErrorUnauthorized ErrorKind = "unauthorized"
	ErrorTransient    ErrorKind = "transient"
	ErrorOther        ErrorKind = "other"
)

var (
	ErrUnauthorized = errors.New("remote: unauthorized")
	ErrTransient    = errors.New("remote: transient failure")
	ErrRemote       = errors.New("remote: request failed")
)

// RemoteError describe un fallo de una llamada remota ya clasificado.
type RemoteError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("remote %s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("remote %s: %s", e.Kind, msg)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrUnauthorized) y equivalentes.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == ErrorUnauthorized
	case ErrTransient:
		return e.Kind == ErrorTransient
	case ErrRemote:
		return true
	}
	return false
}

// KindForStatus mapea un status HTTP a la clasificacion de errores.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorUnauthorized
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return ErrorTransient
	default:
		return ErrorOther
	}
}

// ClassifyError devuelve el tipo de un error remoto; errores desconocidos cuentan como transitorios.
func ClassifyError(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ErrorTransient
}
