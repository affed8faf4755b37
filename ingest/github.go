// Package ingest fetches external text corpora for the segment engine to
// train on. It is deliberately minimal: no GitHub API pagination,
// authentication, or rate-limit handling is attempted here, since that
// belongs to whatever external caller owns the ingestion schedule. This
// package exists only so a corpus source exercises the segment engine
// end-to-end.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"

	"github.com/cognitron/cognitron/cerr"
)

// Source fetches a text corpus for training. Implementations return plain
// text with markup and HTML stripped.
type Source interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// GitHubSource fetches a single file's raw content from GitHub via the
// raw.githubusercontent.com mirror and reduces it to plain text: markdown
// is walked to its text nodes, anything else is treated as HTML and run
// through goquery.
type GitHubSource struct {
	Client  *http.Client
	BaseURL string
}

// NewGitHubSource builds a GitHubSource using http.DefaultClient unless
// overridden.
func NewGitHubSource() *GitHubSource {
	return &GitHubSource{
		Client:  http.DefaultClient,
		BaseURL: "https://raw.githubusercontent.com",
	}
}

// Fetch retrieves ref (an "owner/repo/branch/path" string) and returns its
// plain-text content.
func (g *GitHubSource) Fetch(ctx context.Context, ref string) (string, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(g.BaseURL, "/"), strings.TrimLeft(ref, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", cerr.Wrap("ingest", cerr.Input, "building request for "+ref, err)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", cerr.Wrap("ingest", cerr.Upstream, "fetching "+ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", cerr.New("ingest", cerr.Upstream, fmt.Sprintf("fetching %s: status %d", ref, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", cerr.Wrap("ingest", cerr.Upstream, "reading body for "+ref, err)
	}

	if strings.HasSuffix(ref, ".md") || strings.HasSuffix(ref, ".markdown") {
		return markdownToText(body), nil
	}
	return htmlToText(body)
}

func markdownToText(source []byte) string {
	doc := markdown.Parse(source, nil)
	var sb strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf, ok := node.(*ast.Text); ok {
			sb.Write(leaf.Literal)
			sb.WriteString(" ")
		}
		if _, ok := node.(*ast.CodeBlock); ok {
			return ast.SkipChildren
		}
		return ast.GoToNext
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

func htmlToText(source []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(source)))
	if err != nil {
		return "", cerr.Wrap("ingest", cerr.Input, "parsing html", err)
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}
