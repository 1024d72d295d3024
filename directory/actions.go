package directory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type (
	// Action is one request variant understood by the remote directory.
	// Only the fields declared on each variant are ever sent.
	Action interface {
		ActionName() string
	}

	CheckEmpty struct{}

	UserGet struct {
		Usuario string `json:"usuario"`
	}

	UserCreate struct {
		Usuario     string `json:"usuario"`
		ClaveHash   string `json:"clave_hash"`
		Nombre      string `json:"nombre"`
		ApellidoPat string `json:"apellido_pat"`
		PCOrigen    string `json:"pc_origen"`
		Rol         string `json:"rol"`
	}

	UserDisable struct {
		Usuario string `json:"usuario"`
	}

	UserTouchLogin struct {
		Usuario  string `json:"usuario"`
		PCOrigen string `json:"pc_origen"`
	}

	GoogleLogin struct {
		IDToken string `json:"id_token"`
	}
)

func (CheckEmpty) ActionName() string     { return "check_empty" }
func (UserGet) ActionName() string        { return "user_get" }
func (UserCreate) ActionName() string     { return "user_create" }
func (UserDisable) ActionName() string    { return "user_disable" }
func (UserTouchLogin) ActionName() string { return "user_touch_login" }
func (GoogleLogin) ActionName() string    { return "google_login" }

// Envelope encodes a as {"action": name, ...fields}.
func Envelope(a Action) ([]byte, error) {
	name, err := json.Marshal(a.ActionName())
	if err != nil {
		return nil, err
	}
	fields, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("unable to encode action %v, cause %w", a.ActionName(), err)
	}
	fields = bytes.TrimSpace(fields)
	if len(fields) < 2 || fields[0] != '{' {
		return nil, fmt.Errorf("action %v must encode as a JSON object", a.ActionName())
	}
	var buf bytes.Buffer
	buf.WriteString(`{"action":`)
	buf.Write(name)
	if inner := bytes.TrimSpace(fields[1 : len(fields)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
