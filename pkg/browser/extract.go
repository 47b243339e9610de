package browser

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ExtractFormat selects the shape of extracted page content.
type ExtractFormat string

const (
	FormatText     ExtractFormat = "text"
	FormatMarkdown ExtractFormat = "markdown"
)

// ExtractOptions configures content extraction.
type ExtractOptions struct {
	// Format defaults to FormatMarkdown.
	Format ExtractFormat

	// MaxLength bounds the returned content in bytes; zero means
	// DefaultMaxExtractLength.
	MaxLength int
}

// DefaultMaxExtractLength bounds extracted content when the caller does
// not specify a limit.
const DefaultMaxExtractLength = 10000

// ExtractContent returns the page's visible content with scripts,
// styles, and other noise stripped.
func (m *Manager) ExtractContent(ctx context.Context, contextKey, pageKey string, opts ExtractOptions) (string, error) {
	page, err := m.lookupPage(contextKey, pageKey)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxExtractLength
	}

	var raw string
	err = page.do(func(p DriverPage) error {
		content, err := p.Content()
		if err != nil {
			return driverErr("extractContent", err)
		}
		raw = content
		return nil
	})
	if err != nil {
		return "", err
	}

	return renderContent(raw, opts)
}

// renderContent parses raw HTML and renders it in the requested format,
// truncating at the configured limit.
func renderContent(rawHTML string, opts ExtractOptions) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse page HTML: %w", err)
	}

	var b strings.Builder
	if opts.Format == FormatMarkdown {
		if title := documentTitle(doc); title != "" {
			fmt.Fprintf(&b, "# %s\n\n", title)
		}
	}
	renderNode(doc, &b, opts.Format)

	content := collapseBlankLines(b.String())
	if len(content) > opts.MaxLength {
		truncated := content[:opts.MaxLength]
		return truncated + fmt.Sprintf("\n\n[content truncated: %d of %d bytes shown]", opts.MaxLength, len(content)), nil
	}
	return content, nil
}

// skippedElements are dropped entirely, subtree included.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"iframe":   true,
	"svg":      true,
	"template": true,
}

// blockElements get a line break after their content.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"li": true, "tr": true, "br": true, "ul": true, "ol": true,
	"table": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func renderNode(n *html.Node, b *strings.Builder, format ExtractFormat) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			b.WriteString(text)
			b.WriteByte(' ')
		}
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if skippedElements[tag] {
			return
		}
		if format == FormatMarkdown {
			switch tag {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
				b.WriteString(strings.Repeat("#", int(tag[1]-'0')))
				b.WriteByte(' ')
			case "li":
				b.WriteString("- ")
			case "a":
				if href := attr(n, "href"); href != "" {
					b.WriteByte('[')
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						renderNode(c, b, format)
					}
					trimTrailingSpace(b)
					fmt.Fprintf(b, "](%s) ", href)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(c, b, format)
		}
		if blockElements[tag] {
			trimTrailingSpace(b)
			b.WriteByte('\n')
		}
		return
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(c, b, format)
		}
	}
}

func documentTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// trimTrailingSpace drops a single trailing space left by text nodes so
// block boundaries do not end mid-line with whitespace.
func trimTrailingSpace(b *strings.Builder) {
	s := b.String()
	if strings.HasSuffix(s, " ") {
		b.Reset()
		b.WriteString(s[:len(s)-1])
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blank = 0
		out = append(out, strings.TrimRight(line, " "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
