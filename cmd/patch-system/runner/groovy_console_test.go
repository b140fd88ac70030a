package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/clients"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

func TestGroovyConsole_Execute(t *testing.T) {
	var gotPath, gotUser, gotScript string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser = r.Header.Get("X-User-ID")
		_ = r.ParseForm()
		gotScript = r.PostForm.Get("scriptPath")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"done","exceptionStackTrace":"","runningTime":"00:00:03.000","result":"true"}`))
	}))
	defer srv.Close()

	log := logger.Discard()
	console := NewGroovyConsole(clients.NewHTTPClient(srv.Client(), log), srv.URL+"/", log)
	ctx := clients.WithUserID(context.Background(), "jetpack-patch-system")

	out, err := console.Execute(ctx, &models.Patch{Path: "/etc/patches/a/001.groovy"})
	require.NoError(t, err)

	assert.Equal(t, GroovyConsolePath, gotPath)
	assert.Equal(t, "jetpack-patch-system", gotUser)
	assert.Equal(t, "/etc/patches/a/001.groovy", gotScript)
	assert.Equal(t, "done", out.Output)
	assert.Equal(t, "00:00:03.000", out.RunningTime)
	assert.Empty(t, out.ExceptionStackTrace)
}

func TestGroovyConsole_ScriptFailureIsOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":"","exceptionStackTrace":"groovy.lang.MissingPropertyException","runningTime":"12"}`))
	}))
	defer srv.Close()

	log := logger.Discard()
	console := NewGroovyConsole(clients.NewHTTPClient(srv.Client(), log), srv.URL, log)

	out, err := console.Execute(context.Background(), &models.Patch{Path: "/p.groovy"})
	require.NoError(t, err)
	assert.Equal(t, "groovy.lang.MissingPropertyException", out.ExceptionStackTrace)
	assert.Equal(t, "12", out.RunningTime)
}

func TestGroovyConsole_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.Error(w, "console broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	log := logger.Discard()
	console := NewGroovyConsole(clients.NewHTTPClient(srv.Client(), log), srv.URL, log)

	_, err := console.Execute(context.Background(), &models.Patch{Path: "/p.groovy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "console broken")
}

func TestGroovyConsole_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	}))
	defer srv.Close()

	log := logger.Discard()
	console := NewGroovyConsole(clients.NewHTTPClient(srv.Client(), log), srv.URL, log)

	_, err := console.Execute(context.Background(), &models.Patch{Path: "/p.groovy"})
	assert.ErrorContains(t, err, "decode")
}
