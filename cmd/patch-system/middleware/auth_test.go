package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUsername(t *testing.T) {
	e := echo.New()

	var got string
	h := ExtractUsername()(func(c echo.Context) error {
		got = GetUsername(c)
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "alice")
	require.NoError(t, h(e.NewContext(req, httptest.NewRecorder())))
	assert.Equal(t, "alice", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, h(e.NewContext(req, httptest.NewRecorder())))
	assert.Empty(t, got)
}
