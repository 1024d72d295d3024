package directory

import (
	"encoding/json"
	"net/http"
	"strings"
)

type (
	// Result is a decoded directory response. Status is the HTTP status the
	// bridge should relay and Body the JSON object exactly as received.
	Result struct {
		Status int
		Body   json.RawMessage
	}

	envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	// User is the record returned by user_get. ClaveHash is only used for
	// verification and never leaves the bridge.
	User struct {
		Usuario     string `json:"usuario"`
		ClaveHash   string `json:"clave_hash"`
		Nombre      string `json:"nombre"`
		ApellidoPat string `json:"apellido_pat"`
		Rol         string `json:"rol"`
		Activo      Flag   `json:"activo"`
		PCOrigen    string `json:"pc_origen"`
	}

	// Flag decodes the loose booleans a spreadsheet backend produces.
	Flag bool
)

// NewResult builds a result from a value that encodes to a JSON object.
func NewResult(status int, body interface{}) (*Result, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &Result{Status: status, Body: buf}, nil
}

func (r *Result) Success() bool {
	var env envelope
	if r == nil || json.Unmarshal(r.Body, &env) != nil {
		return false
	}
	return env.Success
}

func (r *Result) Message() string {
	var env envelope
	if r == nil || json.Unmarshal(r.Body, &env) != nil {
		return ""
	}
	return env.Message
}

func (r *Result) Decode(out interface{}) error {
	return json.Unmarshal(r.Body, out)
}

// Empty reads the answer of check_empty.
func (r *Result) Empty() (empty bool, ok bool) {
	var body struct {
		Success bool `json:"success"`
		Empty   bool `json:"empty"`
	}
	if r == nil || r.Status != http.StatusOK || r.Decode(&body) != nil || !body.Success {
		return false, false
	}
	return body.Empty, true
}

// User reads the answer of user_get, found is false when the directory
// reports a failure or omits the record.
func (r *Result) User() (user User, found bool) {
	var body struct {
		Success bool  `json:"success"`
		User    *User `json:"user"`
	}
	if r == nil || r.Status != http.StatusOK || r.Decode(&body) != nil || !body.Success || body.User == nil {
		return User{}, false
	}
	return *body.User, true
}

func (f *Flag) UnmarshalJSON(buf []byte) error {
	var raw interface{}
	if err := json.Unmarshal(buf, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*f = Flag(v)
	case float64:
		*f = v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "si", "sí", "yes", "y", "x", "activo":
			*f = true
		default:
			*f = false
		}
	default:
		*f = false
	}
	return nil
}
