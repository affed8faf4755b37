package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubSourceFetchMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Title\n\nSome **bold** text with a [link](http://example.com)."))
	}))
	defer server.Close()

	source := &GitHubSource{Client: server.Client(), BaseURL: server.URL}
	text, err := source.Fetch(context.Background(), "owner/repo/main/README.md")
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "bold")
}

func TestGitHubSourceFetchHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><script>ignored()</script><p>Hello world</p></body></html>"))
	}))
	defer server.Close()

	source := &GitHubSource{Client: server.Client(), BaseURL: server.URL}
	text, err := source.Fetch(context.Background(), "owner/repo/main/index.html")
	require.NoError(t, err)
	assert.Contains(t, text, "Hello world")
	assert.NotContains(t, text, "ignored()")
}

func TestGitHubSourceFetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := &GitHubSource{Client: server.Client(), BaseURL: server.URL}
	_, err := source.Fetch(context.Background(), "owner/repo/main/missing.md")
	assert.Error(t, err)
}
