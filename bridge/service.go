// Package bridge implements the credential flows: login, registration,
// soft delete, the emptiness probe and the admin bootstrap. Durable state
// belongs to the remote directory; passwords are hashed and verified here
// and only hashes ever leave the process.
package bridge

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/andrebq/puente/credential"
	"github.com/andrebq/puente/directory"
	"github.com/andrebq/puente/internal/config"
	"github.com/andrebq/puente/internal/logutil"
)

type (
	Directory interface {
		Call(ctx context.Context, a directory.Action) (*directory.Result, error)
	}

	Service struct {
		cfg      *config.Config
		dir      Directory
		codec    *credential.Codec
		touch    *TouchNotifier
		validate *validator.Validate
	}
)

// New returns a service using cfg for the pepper, the bcrypt cost and the
// superadmin override. touch may be nil, logins are then not recorded.
func New(cfg *config.Config, dir Directory, touch *TouchNotifier) *Service {
	return &Service{
		cfg:      cfg,
		dir:      dir,
		codec:    credential.NewCodec(cfg.Pepper, cfg.BcryptCost),
		touch:    touch,
		validate: newValidator(),
	}
}

func (s *Service) Codec() *credential.Codec {
	return s.codec
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	if err := checkRequest(s.validate, req); err != nil {
		return Session{}, err
	}
	log := logutil.GetOrDefault(ctx).With().Str("usuario", req.Usuario).Logger()

	if s.cfg.SuperadminConfigured() && req.Usuario == s.cfg.SuperadminUser {
		if !s.codec.Verify(req.Clave, s.cfg.SuperadminHash) {
			log.Info().Msg("Superadmin login rejected")
			return Session{}, Rejection{Message: MsgBadCredentials}
		}
		log.Info().Msg("Superadmin login")
		return Session{Usuario: req.Usuario, Nombre: "Superadmin", Rol: RoleSuper}, nil
	}

	res, err := s.dir.Call(ctx, directory.UserGet{Usuario: req.Usuario})
	if err != nil {
		return Session{}, err
	}
	if res.Status != http.StatusOK {
		return Session{}, UpstreamFailure{Result: res}
	}
	user, found := res.User()
	switch {
	case !found:
		return Session{}, s.authFailure(MsgUserNotFound)
	case !bool(user.Activo):
		return Session{}, s.authFailure(MsgUserInactive)
	case user.ClaveHash == "":
		return Session{}, s.authFailure(MsgNoPassword)
	case !s.codec.Verify(req.Clave, user.ClaveHash):
		log.Info().Msg("Login rejected")
		return Session{}, Rejection{Message: MsgBadCredentials}
	}

	s.touch.Notify(ctx, req.Usuario, req.PCOrigen)
	sess := Session{Usuario: user.Usuario, Nombre: user.Nombre, Rol: user.Rol}
	if sess.Usuario == "" {
		sess.Usuario = req.Usuario
	}
	if sess.Rol == "" {
		sess.Rol = RoleUser
	}
	return sess, nil
}

// Register hashes the password and asks the directory to create the user.
// The directory answer is returned as is, it decides about duplicates.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*directory.Result, error) {
	if err := checkRequest(s.validate, req); err != nil {
		return nil, err
	}
	hash, err := s.hash(req.Clave)
	if err != nil {
		return nil, err
	}
	if req.Rol == "" {
		req.Rol = RoleUser
	}
	return s.dir.Call(ctx, directory.UserCreate{
		Usuario:     req.Usuario,
		ClaveHash:   hash,
		Nombre:      req.Nombre,
		ApellidoPat: req.ApellidoPat,
		PCOrigen:    req.PCOrigen,
		Rol:         req.Rol,
	})
}

// Disable marks the user inactive, records are never erased.
func (s *Service) Disable(ctx context.Context, req DeleteRequest) (*directory.Result, error) {
	if err := checkRequest(s.validate, req); err != nil {
		return nil, err
	}
	return s.dir.Call(ctx, directory.UserDisable{Usuario: req.Usuario})
}

func (s *Service) CheckEmpty(ctx context.Context) (*directory.Result, error) {
	return s.dir.Call(ctx, directory.CheckEmpty{})
}

func (s *Service) GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*directory.Result, error) {
	if err := checkRequest(s.validate, req); err != nil {
		return nil, err
	}
	return s.dir.Call(ctx, directory.GoogleLogin{IDToken: req.IDToken})
}

// BootstrapAdmin creates the superadmin as a regular admin record when the
// directory has no users at all. Calling it on a populated directory is a
// no-op that still reports success.
func (s *Service) BootstrapAdmin(ctx context.Context) (*directory.Result, error) {
	if !s.cfg.SuperadminConfigured() {
		return nil, Rejection{Message: MsgNoSuperadmin}
	}
	res, err := s.dir.Call(ctx, directory.CheckEmpty{})
	if err != nil {
		return nil, err
	}
	empty, ok := res.Empty()
	if !ok {
		return res, nil
	}
	log := logutil.GetOrDefault(ctx).With().Str("usuario", s.cfg.SuperadminUser).Logger()
	if !empty {
		log.Info().Msg("Directory already has users, skipping bootstrap")
		return directory.NewResult(http.StatusOK, struct {
			Success bool   `json:"success"`
			Created bool   `json:"created"`
			Message string `json:"message"`
		}{true, false, MsgBootstrapSkipped})
	}
	log.Info().Msg("Creating the initial admin account")
	return s.dir.Call(ctx, directory.UserCreate{
		Usuario:   s.cfg.SuperadminUser,
		ClaveHash: s.cfg.SuperadminHash,
		Nombre:    "Superadmin",
		Rol:       RoleAdmin,
	})
}

func (s *Service) hash(password string) (string, error) {
	hash, err := s.codec.Hash(password)
	if errors.Is(err, credential.ErrPasswordTooLong) {
		return "", Rejection{Message: MsgPasswordTooLong}
	}
	return hash, err
}

func (s *Service) authFailure(msg string) error {
	if s.cfg.UniformAuthErrors {
		return Rejection{Message: MsgBadCredentials}
	}
	return Rejection{Message: msg}
}
