// Package devstore is a local stand-in for the remote directory. It keeps
// users in a sqlite file and answers the same JSON actions, which is enough
// to run the bridge without the hosted spreadsheet.
package devstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/andrebq/puente/directory"
)

type (
	Store struct {
		db  *sql.DB
		now func() time.Time
	}
)

// Open loads or creates the user database stored inside dir.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create directory %v to store users, cause %w", dir, err)
	}
	file := filepath.Join(dir, "usuarios.db")
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%v?_journal=wal&_busy_timeout=5000&mode=rwc", file))
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %w", file, err)
	}
	// sqlite serializes writers, a single connection avoids busy errors
	conn.SetMaxOpenConns(1)
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping %v, cause %w", file, err)
	}
	s := &Store{db: conn, now: time.Now}
	if err = s.init(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init %v, cause %w", file, err)
	}
	return s, nil
}

func (s *Store) Empty(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `select count(*) from usuarios`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("unable to count users, cause %w", err)
	}
	return count == 0, nil
}

func (s *Store) Get(ctx context.Context, usuario string) (directory.User, error) {
	var u directory.User
	var activo bool
	err := s.db.QueryRowContext(ctx, `select usuario, clave_hash, nombre, apellido_pat, rol, activo, pc_origen
	from usuarios where usuario_hash64 = ? and usuario = ?`, hashUser(usuario), usuario).
		Scan(&u.Usuario, &u.ClaveHash, &u.Nombre, &u.ApellidoPat, &u.Rol, &activo, &u.PCOrigen)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, UserNotFound{Usuario: usuario}
	} else if err != nil {
		return directory.User{}, fmt.Errorf("unable to load user %v, cause %w", usuario, err)
	}
	u.Activo = directory.Flag(activo)
	return u, nil
}

// Create inserts a new active user, rol defaults to user.
func (s *Store) Create(ctx context.Context, u directory.UserCreate) error {
	if u.Rol == "" {
		u.Rol = "user"
	}
	res, err := s.db.ExecContext(ctx, `insert into usuarios(usuario, usuario_hash64, clave_hash, nombre, apellido_pat, rol, activo, pc_origen, creado)
	values (?, ?, ?, ?, ?, ?, 1, ?, ?) on conflict (usuario) do nothing`,
		u.Usuario, hashUser(u.Usuario), u.ClaveHash, u.Nombre, u.ApellidoPat, u.Rol, u.PCOrigen, s.now().UTC())
	if err != nil {
		return fmt.Errorf("unable to create user %v, cause %w", u.Usuario, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return UserExists{Usuario: u.Usuario}
	}
	return nil
}

// Disable marks the user inactive, the row is kept.
func (s *Store) Disable(ctx context.Context, usuario string) error {
	return s.update(ctx, usuario, `update usuarios set activo = 0 where usuario_hash64 = ? and usuario = ?`,
		hashUser(usuario), usuario)
}

func (s *Store) TouchLogin(ctx context.Context, usuario, pcOrigen string) error {
	return s.update(ctx, usuario, `update usuarios set ultimo_login = ?, pc_origen = coalesce(nullif(?, ''), pc_origen)
	where usuario_hash64 = ? and usuario = ?`,
		s.now().UTC(), pcOrigen, hashUser(usuario), usuario)
}

// LastLogin returns the zero time for users who never logged in.
func (s *Store) LastLogin(ctx context.Context, usuario string) (time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `select ultimo_login from usuarios where usuario_hash64 = ? and usuario = ?`,
		hashUser(usuario), usuario).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, UserNotFound{Usuario: usuario}
	} else if err != nil {
		return time.Time{}, fmt.Errorf("unable to load last login of %v, cause %w", usuario, err)
	}
	return last.Time, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) update(ctx context.Context, usuario string, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unable to update user %v, cause %w", usuario, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return UserNotFound{Usuario: usuario}
	}
	return nil
}

func hashUser(usuario string) int64 {
	return int64(xxhash.Sum64String(usuario))
}

func (s *Store) init(ctx context.Context) error {
	for _, cmd := range []string{
		`create table if not exists usuarios(
			usuario text not null primary key,
			usuario_hash64 integer not null,
			clave_hash text not null,
			nombre text not null,
			apellido_pat text not null default '',
			rol text not null default 'user',
			activo integer not null default 1,
			pc_origen text not null default '',
			creado timestamp not null,
			ultimo_login timestamp
		)`,
		`create index if not exists idx_usuarios_hash64
			on usuarios(usuario_hash64)
		`,
	} {
		_, err := s.db.ExecContext(ctx, cmd)
		if err != nil {
			return err
		}
	}
	return nil
}
