package links

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Preview is the metadata pulled out of a linked page.
type Preview struct {
	Title       string
	Description string
	PublishedAt time.Time
}

// Resolver fetches URLs and extracts previews. It is only used when link
// enrichment is enabled.
type Resolver struct {
	fetcher *Fetcher
	logger  *zerolog.Logger
}

// NewResolver builds a preview resolver.
func NewResolver(fetcher *Fetcher, logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Resolver{fetcher: fetcher, logger: logger}
}

// Resolve downloads a page and extracts its preview. Readability does the
// heavy lifting; meta tags fill in whatever it misses.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Preview, error) {
	body, contentType, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	body = decodeCharset(body, contentType)

	return extractPreview(body, rawURL), nil
}

func extractPreview(body []byte, rawURL string) *Preview {
	u, _ := url.Parse(rawURL)
	meta := extractMetaTags(body)

	preview := &Preview{
		Title:       coalesce(meta.OGTitle, meta.Title),
		Description: coalesce(meta.OGDescription, meta.Description),
		PublishedAt: parseDate(meta.PublishedTime),
	}

	if article, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
		preview.Title = coalesce(article.Title, preview.Title)
	}

	return preview
}

type metaTags struct {
	Title         string
	Description   string
	OGTitle       string
	OGDescription string
	PublishedTime string
}

func extractMetaTags(body []byte) metaTags {
	var meta metaTags

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return meta
	}

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					meta.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				name, content := metaAttrs(n)
				switch strings.ToLower(name) {
				case "description":
					meta.Description = content
				case "og:title":
					meta.OGTitle = content
				case "og:description":
					meta.OGDescription = content
				case "article:published_time":
					meta.PublishedTime = content
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	return meta
}

func metaAttrs(n *html.Node) (name, content string) {
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			name = attr.Val
		case "content":
			content = attr.Val
		}
	}

	return name, content
}

// decodeCharset converts windows-1251 bodies to UTF-8. Russian news sites
// still serve it; everything else is passed through untouched.
func decodeCharset(body []byte, contentType string) []byte {
	ct := strings.ToLower(contentType)
	if !strings.Contains(ct, "windows-1251") && !strings.Contains(ct, "cp1251") {
		return body
	}

	decoded, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), body)
	if err != nil {
		return body
	}

	return decoded
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}

	return t
}
