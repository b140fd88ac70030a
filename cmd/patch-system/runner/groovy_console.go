package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/clients"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// GroovyConsolePath is the console endpoint that runs a script by path
const GroovyConsolePath = "/bin/groovyconsole/post.json"

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 512

// GroovyConsole runs patch scripts through a remote Groovy Console
type GroovyConsole struct {
	client  *clients.HTTPClient
	baseURL string
	log     *logger.Logger
}

// NewGroovyConsole creates a console runner posting to baseURL
func NewGroovyConsole(client *clients.HTTPClient, baseURL string, log *logger.Logger) *GroovyConsole {
	return &GroovyConsole{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log,
	}
}

// Execute asks the console to run the script at patch.Path.
// Script failures come back inside the Outcome; an error means the console
// itself could not be reached or answered something unreadable.
func (g *GroovyConsole) Execute(ctx context.Context, patch *models.Patch) (*Outcome, error) {
	form := url.Values{}
	form.Set("scriptPath", patch.Path)

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("Accept", "application/json")

	g.log.Debug("posting script to groovy console", "patch_path", patch.Path, "url", g.baseURL)

	resp, err := g.client.DoRequest(ctx, http.MethodPost, g.baseURL+GroovyConsolePath, strings.NewReader(form.Encode()), header)
	if err != nil {
		return nil, fmt.Errorf("failed to call groovy console: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("groovy console returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var outcome Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("failed to decode groovy console response: %w", err)
	}

	return &outcome, nil
}
