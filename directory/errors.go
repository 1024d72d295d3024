package directory

import (
	"fmt"
	"time"
)

type (
	NotConfigured struct{}

	Timeout struct {
		After time.Duration
	}

	TransportError struct {
		Action string
		cause  error
	}

	// ProtocolError means the directory answered with something that is not
	// JSON. Raw keeps the payload for diagnostics.
	ProtocolError struct {
		Status int
		Raw    string
	}
)

func (NotConfigured) Error() string {
	return "GAS_URL no configurada"
}

func (Timeout) Error() string {
	return "Timeout al contactar GAS"
}

func (t TransportError) Error() string {
	return fmt.Sprintf("unable to call directory action %v, cause %v", t.Action, t.cause)
}

func (t TransportError) Unwrap() error {
	return t.cause
}

func (ProtocolError) Error() string {
	return "Respuesta no-JSON desde GAS"
}
