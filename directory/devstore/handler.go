package devstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/andrebq/puente/directory"
	"github.com/andrebq/puente/internal/logutil"
)

const (
	maxRequestBody = 1 << 20
)

type (
	reply = map[string]interface{}

	// Request is the union of the fields any action may carry.
	Request struct {
		Action string `json:"action"`
		directory.UserCreate
		IDToken string `json:"id_token"`
	}
)

// AsHandler serves the directory protocol: POST / with {"action": ...}.
func AsHandler(s *Store) http.Handler {
	router := httprouter.New()
	router.HandlerFunc("POST", "/", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, reply{"success": false, "message": "JSON inválido"})
			return
		}
		status, body := s.Dispatch(r.Context(), req)
		writeJSON(w, status, body)
	})
	return router
}

// Dispatch runs one action and returns the status and body to answer with.
func (s *Store) Dispatch(ctx context.Context, req Request) (int, map[string]interface{}) {
	log := logutil.GetOrDefault(ctx).With().Str("directory.action", req.Action).Str("usuario", req.Usuario).Logger()
	var err error
	switch req.Action {
	case "check_empty":
		var empty bool
		empty, err = s.Empty(ctx)
		if err == nil {
			return http.StatusOK, reply{"success": true, "empty": empty}
		}
	case "user_get":
		var u directory.User
		u, err = s.Get(ctx, req.Usuario)
		if err == nil {
			return http.StatusOK, reply{"success": true, "user": u}
		}
	case "user_create":
		if req.Usuario == "" || req.ClaveHash == "" || req.Nombre == "" {
			return http.StatusOK, reply{"success": false, "message": "usuario, clave_hash y nombre requeridos"}
		}
		err = s.Create(ctx, req.UserCreate)
		if err == nil {
			log.Info().Msg("User created")
			return http.StatusOK, reply{"success": true, "created": true, "message": "Usuario creado"}
		}
	case "user_disable":
		err = s.Disable(ctx, req.Usuario)
		if err == nil {
			log.Info().Msg("User disabled")
			return http.StatusOK, reply{"success": true, "message": "Usuario deshabilitado"}
		}
	case "user_touch_login":
		err = s.TouchLogin(ctx, req.Usuario, req.PCOrigen)
		if err == nil {
			return http.StatusOK, reply{"success": true}
		}
	case "google_login":
		return http.StatusOK, reply{"success": false, "message": "google_login no disponible en el directorio local"}
	default:
		return http.StatusOK, reply{"success": false, "message": "Acción desconocida"}
	}

	var (
		exists   UserExists
		notFound UserNotFound
	)
	switch {
	case errors.As(err, &exists):
		return http.StatusOK, reply{"success": false, "message": "Usuario ya existe"}
	case errors.As(err, &notFound):
		return http.StatusOK, reply{"success": false, "message": "Usuario no encontrado"}
	}
	log.Error().Err(err).Msg("Directory action failed")
	return http.StatusInternalServerError, reply{"success": false, "message": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
