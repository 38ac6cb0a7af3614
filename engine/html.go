// CLAUDE:SUMMARY HTML extraction: sanitize, convert to markdown-style text, DOM-walk fallback, title into metadata.
package engine

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// extractHTML converts an HTML document to readable text. The markup is
// sanitized first so script/style payloads never reach the converter; if the
// markdown conversion yields nothing usable, a plain DOM text walk is the
// fallback.
func (n *Native) extractHTML(ctx context.Context, data []byte, md Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if title := findTitle(doc); title != "" {
		md.Set("dc:title", title)
	}

	clean := n.policy.SanitizeBytes(data)
	text, err := n.conv.ConvertString(string(clean))
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			n.logger.Debug("markdown conversion failed, falling back to DOM walk", "error", err)
		}
		text = collectText(doc)
	}
	return strings.TrimSpace(text), nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// collectText walks the DOM and gathers visible text, skipping script,
// style, and noscript subtrees.
func collectText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}
