package logutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "json")
	ctx := WithLogger(context.Background(), logger)
	l := GetOrDefault(ctx)
	l.Info().Str("k", "v").Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "v", line["k"])
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, New(nil, "chatty", "json").GetLevel())
	require.Equal(t, zerolog.WarnLevel, New(nil, "WARN", "pretty").GetLevel())
}

func TestRequests(t *testing.T) {
	var buf bytes.Buffer
	handler := Requests(New(&buf, "info", "json"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := GetOrDefault(r.Context())
		log.Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))
	apitest.Handler(handler).
		Get("/probe").
		Expect(t).
		Status(http.StatusTeapot).
		HeaderPresent("X-Request-Id").
		End()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var access map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &access))
	require.Equal(t, "/probe", access["path"])
	require.Equal(t, float64(http.StatusTeapot), access["status"])
	require.NotEmpty(t, access["req_id"])
}
