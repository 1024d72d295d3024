package bridge

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleSuper = "super"
)

type (
	LoginRequest struct {
		Usuario  string `json:"usuario" validate:"required"`
		Clave    string `json:"clave" validate:"required"`
		PCOrigen string `json:"pc_origen"`
	}

	RegisterRequest struct {
		Usuario     string `json:"usuario" validate:"required"`
		Clave       string `json:"clave" validate:"required"`
		Nombre      string `json:"nombre" validate:"required"`
		ApellidoPat string `json:"apellido_pat"`
		PCOrigen    string `json:"pc_origen"`
		// super is never assigned through registration
		Rol string `json:"rol" validate:"omitempty,oneof=user admin"`
	}

	DeleteRequest struct {
		Usuario string `json:"usuario" validate:"required"`
	}

	GoogleLoginRequest struct {
		IDToken string `json:"id_token" validate:"required"`
	}

	// Session is what a successful login tells the client.
	Session struct {
		Usuario string `json:"usuario"`
		Nombre  string `json:"nombre"`
		Rol     string `json:"rol"`
	}

	request interface {
		requiredMessage() string
	}
)

func (LoginRequest) requiredMessage() string       { return MsgLoginRequired }
func (RegisterRequest) requiredMessage() string    { return MsgRegisterRequired }
func (DeleteRequest) requiredMessage() string      { return MsgUserRequired }
func (GoogleLoginRequest) requiredMessage() string { return MsgIDTokenRequired }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkRequest turns validation failures into the rejection the client
// expects for that route. Missing fields win over invalid values.
func checkRequest(v *validator.Validate, req request) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	invalidRole := false
	for _, f := range fields {
		switch f.Tag() {
		case "required":
			return Rejection{Message: req.requiredMessage()}
		case "oneof":
			invalidRole = invalidRole || f.Field() == "rol"
		}
	}
	if invalidRole {
		return Rejection{Message: MsgInvalidRole}
	}
	return Rejection{Message: req.requiredMessage()}
}
