// Package htmltomarkdown provides the default render collaborator:
// fetched posts become markdown files with YAML frontmatter, with
// localized asset URLs rewritten to their archive paths.
package htmltomarkdown

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/akarol/subsync"
)

// Ensure Renderer implements subsync.Renderer at compile time.
var _ subsync.Renderer = (*Renderer)(nil)

// Renderer converts post HTML to markdown and writes it through an
// archive store. Assets the image pipeline localized are referenced by
// their local paths; everything else keeps its remote URL.
type Renderer struct {
	store subsync.ArchiveStore
	conv  *converter.Converter
}

// NewRenderer creates a Renderer writing through store.
func NewRenderer(store subsync.ArchiveStore) *Renderer {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Renderer{store: store, conv: conv}
}

// Render converts and stores one post.
func (r *Renderer) Render(ctx context.Context, post *subsync.Post) error {
	if post == nil || post.Resource == nil {
		return subsync.Errorf(subsync.EINVALID, "post required")
	}

	html := post.HTML
	for _, asset := range post.Assets {
		if asset.Localized {
			html = strings.ReplaceAll(html, asset.RemoteURL, asset.LocalPath)
		}
	}

	markdown, err := r.conv.ConvertString(html)
	if err != nil {
		return subsync.Errorf(subsync.EINTERNAL, "markdown conversion: %v", err)
	}

	content := formatPost(post, markdown)
	_, err = r.store.WritePost(ctx, post.Resource.ID, []byte(content))
	return err
}

// formatPost prepends YAML frontmatter with the post's metadata.
func formatPost(post *subsync.Post, markdown string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source: %s\n", post.Resource.URL)
	if post.Title != "" {
		fmt.Fprintf(&b, "title: %q\n", post.Title)
	}
	if post.Resource.PublishedAt != nil {
		fmt.Fprintf(&b, "published: %s\n", post.Resource.PublishedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "archived: %s\n", time.Now().Format("2006-01-02"))
	b.WriteString("---\n\n")
	b.WriteString(markdown)
	if !strings.HasSuffix(markdown, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
