package devstore

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"

	"github.com/andrebq/puente/directory"
)

func tempStore(t *testing.T) (*Store, func()) {
	dir, err := os.MkdirTemp("", "puente-devstore")
	if err != nil {
		t.Fatal(err)
	}
	s, err := Open(context.Background(), filepath.Join(dir, "data"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return s, func() {
		if err := s.Close(); err != nil {
			t.Log("unable to close store", err)
		}
		if err := os.RemoveAll(dir); err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

func TestUserLifecycle(t *testing.T) {
	s, cleanup := tempStore(t)
	defer cleanup()
	ctx := context.Background()

	empty, err := s.Empty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, s.Create(ctx, directory.UserCreate{
		Usuario: "alice", ClaveHash: "$2a$04$hash", Nombre: "Alice", ApellidoPat: "Arce", Rol: "admin", PCOrigen: "caja-1",
	}))
	empty, err = s.Empty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	u, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, directory.User{
		Usuario: "alice", ClaveHash: "$2a$04$hash", Nombre: "Alice", ApellidoPat: "Arce", Rol: "admin", Activo: true, PCOrigen: "caja-1",
	}, u)

	err = s.Create(ctx, directory.UserCreate{Usuario: "alice", ClaveHash: "x", Nombre: "Otra"})
	var exists UserExists
	require.True(t, errors.As(err, &exists))

	require.NoError(t, s.Disable(ctx, "alice"))
	u, err = s.Get(ctx, "alice")
	require.NoError(t, err)
	require.False(t, bool(u.Activo))

	var notFound UserNotFound
	require.True(t, errors.As(s.Disable(ctx, "ghost"), &notFound))
	_, err = s.Get(ctx, "ghost")
	require.True(t, errors.As(err, &notFound))
}

func TestTouchLogin(t *testing.T) {
	s, cleanup := tempStore(t)
	defer cleanup()
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	require.NoError(t, s.Create(ctx, directory.UserCreate{Usuario: "bob", ClaveHash: "h", Nombre: "Bob", PCOrigen: "caja-1"}))
	last, err := s.LastLogin(ctx, "bob")
	require.NoError(t, err)
	require.True(t, last.IsZero())

	require.NoError(t, s.TouchLogin(ctx, "bob", ""))
	u, err := s.Get(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "caja-1", u.PCOrigen, "an empty origin keeps the previous one")

	require.NoError(t, s.TouchLogin(ctx, "bob", "caja-7"))
	u, err = s.Get(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "caja-7", u.PCOrigen)
	last, err = s.LastLogin(ctx, "bob")
	require.NoError(t, err)
	require.True(t, at.Equal(last))

	var notFound UserNotFound
	require.True(t, errors.As(s.TouchLogin(ctx, "ghost", "x"), &notFound))
}

func TestReopenKeepsUsers(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := Open(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, directory.UserCreate{Usuario: "carla", ClaveHash: "h", Nombre: "Carla"}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, dir)
	require.NoError(t, err)
	defer s.Close()
	u, err := s.Get(ctx, "carla")
	require.NoError(t, err)
	require.Equal(t, "user", u.Rol)
}

func TestHandler(t *testing.T) {
	s, cleanup := tempStore(t)
	defer cleanup()
	handler := AsHandler(s)

	apitest.Handler(handler).Post("/").JSON(`{"action":"check_empty"}`).Expect(t).
		Status(http.StatusOK).
		Body(`{"success":true,"empty":true}`).
		End()
	apitest.Handler(handler).Post("/").
		JSON(`{"action":"user_create","usuario":"dora","clave_hash":"h","nombre":"Dora"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", true)).
		End()
	apitest.Handler(handler).Post("/").
		JSON(`{"action":"user_create","usuario":"dora","clave_hash":"h","nombre":"Dora"}`).
		Expect(t).
		Status(http.StatusOK).
		Body(`{"success":false,"message":"Usuario ya existe"}`).
		End()
	apitest.Handler(handler).Post("/").JSON(`{"action":"user_create","usuario":"eva"}`).Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", false)).
		End()
	apitest.Handler(handler).Post("/").JSON(`{"action":"user_get","usuario":"dora"}`).Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.user.usuario", "dora")).
		Assert(jsonpath.Equal("$.user.rol", "user")).
		Assert(jsonpath.Equal("$.user.activo", true)).
		End()
	apitest.Handler(handler).Post("/").JSON(`{"action":"user_disable","usuario":"dora"}`).Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", true)).
		End()
	apitest.Handler(handler).Post("/").JSON(`{"action":"user_get","usuario":"dora"}`).Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.user.activo", false)).
		End()
	apitest.Handler(handler).Post("/").JSON(`{"action":"user_touch_login","usuario":"ghost"}`).Expect(t).
		Status(http.StatusOK).
		Body(`{"success":false,"message":"Usuario no encontrado"}`).
		End()
	apitest.Handler(handler).Post("/").JSON(`{"action":"google_login","id_token":"t"}`).Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", false)).
		End()
	apitest.Handler(handler).Post("/").JSON(`{"action":"login"}`).Expect(t).
		Status(http.StatusOK).
		Body(`{"success":false,"message":"Acción desconocida"}`).
		End()
	apitest.Handler(handler).Post("/").Body(`not json`).Expect(t).
		Status(http.StatusBadRequest).
		End()
}
