// CLAUDE:SUMMARY RFC-5322 mail extraction: headers to metadata, multipart walk, alternative-body selection.
package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/Valian/extractous-go/pipeline"
)

// extractMail parses an RFC-5322 message. Headers land in metadata; bodies
// are walked recursively. In a multipart/alternative container only the
// first text part is kept unless ExtractAllAlternativesFromMSG asks for
// every alternative body.
func (n *Native) extractMail(ctx context.Context, data []byte, cfg pipeline.Config, md Metadata) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}

	for _, h := range []struct{ header, key string }{
		{"Subject", "dc:title"},
		{"From", "Message-From"},
		{"To", "Message-To"},
		{"Cc", "Message-Cc"},
		{"Date", "dcterms:created"},
	} {
		if v := msg.Header.Get(h.header); v != "" {
			if dec, derr := new(mime.WordDecoder).DecodeHeader(v); derr == nil {
				v = dec
			}
			md.Set(h.key, v)
		}
	}

	body, err := n.mailPart(ctx, msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"), msg.Body, cfg, md)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if subj := msg.Header.Get("Subject"); subj != "" {
		if dec, derr := new(mime.WordDecoder).DecodeHeader(subj); derr == nil {
			subj = dec
		}
		sb.WriteString(subj)
		sb.WriteString("\n\n")
	}
	sb.WriteString(strings.TrimSpace(body))
	return strings.TrimSpace(sb.String()), nil
}

// mailPart extracts one MIME part, recursing into multipart containers.
func (n *Native) mailPart(ctx context.Context, contentType, transferEncoding string, r io.Reader, cfg pipeline.Config, md Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mediaType := "text/plain"
	var params map[string]string
	if contentType != "" {
		mt, p, err := mime.ParseMediaType(contentType)
		if err == nil {
			mediaType, params = mt, p
		}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", fmt.Errorf("multipart body without boundary")
		}
		return n.mailMultipart(ctx, mediaType, boundary, r, cfg, md)
	}

	raw, err := io.ReadAll(decodeTransfer(r, transferEncoding))
	if err != nil {
		return "", fmt.Errorf("read part: %w", err)
	}

	switch {
	case mediaType == "text/html":
		return n.extractHTML(ctx, raw, Metadata{})
	case strings.HasPrefix(mediaType, "text/"):
		return string(raw), nil
	}
	// Attachments and non-text parts are skipped; their names still show up.
	if name := params["name"]; name != "" {
		md.Add("Message-Attachment", name)
	}
	return "", nil
}

func (n *Native) mailMultipart(ctx context.Context, mediaType, boundary string, r io.Reader, cfg pipeline.Config, md Metadata) (string, error) {
	alternative := mediaType == "multipart/alternative"
	allAlternatives := cfg.Office.ExtractAllAlternativesFromMSG

	mr := multipart.NewReader(r, boundary)
	var parts []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read multipart: %w", err)
		}
		if fn := p.FileName(); fn != "" {
			md.Add("Message-Attachment", fn)
			continue
		}
		text, err := n.mailPart(ctx, p.Header.Get("Content-Type"),
			p.Header.Get("Content-Transfer-Encoding"), p, cfg, md)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(text))
		if alternative && !allAlternatives {
			break
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	}
	return r
}
