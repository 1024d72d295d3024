package bridge

import (
	"fmt"

	"github.com/andrebq/puente/directory"
)

const (
	MsgLoginRequired    = "usuario y clave requeridos"
	MsgRegisterRequired = "usuario, clave y nombre requeridos"
	MsgUserRequired     = "usuario requerido"
	MsgIDTokenRequired  = "id_token requerido"
	MsgUserNotFound     = "Usuario no encontrado"
	MsgUserInactive     = "Usuario inactivo"
	MsgNoPassword       = "Usuario sin clave configurada"
	MsgBadCredentials   = "Credenciales inválidas"
	MsgInvalidRole      = "rol inválido"
	MsgPasswordTooLong  = "clave demasiado larga"
	MsgNoSuperadmin     = "Superadmin no configurado"
	MsgBootstrapSkipped = "Ya existen usuarios; bootstrap omitido"
)

type (
	// Rejection is a validation or authentication failure. It is reported
	// to the client as success:false without being a transport error.
	Rejection struct {
		Message string
	}

	// UpstreamFailure carries a directory answer that cannot be used to
	// complete the flow, the caller relays it unchanged.
	UpstreamFailure struct {
		Result *directory.Result
	}

	// TouchError is reported by the touch notifier when a login could not be recorded.
	TouchError struct {
		Usuario string
		cause   error
	}
)

func (r Rejection) Error() string {
	return r.Message
}

func (u UpstreamFailure) Error() string {
	return fmt.Sprintf("directory answered with status %v: %v", u.Result.Status, u.Result.Message())
}

func (t TouchError) Error() string {
	return fmt.Sprintf("unable to record login of %v, cause %v", t.Usuario, t.cause)
}

func (t TouchError) Unwrap() error {
	return t.cause
}
