package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/Valian/extractous-go/pipeline"
)

const simpleMail = "From: Alice <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Quarterly report\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please find the numbers attached.\r\n"

func TestExtractMailSimple(t *testing.T) {
	n := New(Config{})
	md := Metadata{}

	text, err := n.extractMail(context.Background(), []byte(simpleMail), pipeline.Defaults(), md)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Quarterly report") {
		t.Errorf("subject missing from body:\n%s", text)
	}
	if !strings.Contains(text, "Please find the numbers attached.") {
		t.Errorf("body missing:\n%s", text)
	}
	if md.Get("dc:title") != "Quarterly report" {
		t.Errorf("dc:title = %q", md.Get("dc:title"))
	}
	if !strings.Contains(md.Get("Message-From"), "alice@example.com") {
		t.Errorf("Message-From = %q", md.Get("Message-From"))
	}
}

const alternativeMail = "From: a@example.com\r\n" +
	"Subject: Hello\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=BOUND\r\n" +
	"\r\n" +
	"--BOUND\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"plain body\r\n" +
	"--BOUND\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<html><body><p>html body</p></body></html>\r\n" +
	"--BOUND--\r\n"

func TestExtractMailAlternative(t *testing.T) {
	n := New(Config{})

	// Default: only the first alternative body.
	text, err := n.extractMail(context.Background(), []byte(alternativeMail), pipeline.Defaults(), Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "plain body") {
		t.Errorf("plain alternative missing:\n%s", text)
	}
	if strings.Contains(text, "html body") {
		t.Errorf("html alternative included by default:\n%s", text)
	}

	cfg := pipeline.Defaults()
	cfg.Office.ExtractAllAlternativesFromMSG = true
	text, err = n.extractMail(context.Background(), []byte(alternativeMail), cfg, Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "plain body") || !strings.Contains(text, "html body") {
		t.Errorf("expected both alternatives:\n%s", text)
	}
}

const attachmentMail = "From: a@example.com\r\n" +
	"Subject: =?utf-8?q?R=C3=A9sum=C3=A9?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=BOUND\r\n" +
	"\r\n" +
	"--BOUND\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"c2VlIGF0dGFjaGVk\r\n" +
	"--BOUND\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"cv.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4 fake\r\n" +
	"--BOUND--\r\n"

func TestExtractMailAttachment(t *testing.T) {
	n := New(Config{})
	md := Metadata{}

	text, err := n.extractMail(context.Background(), []byte(attachmentMail), pipeline.Defaults(), md)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "see attached") {
		t.Errorf("base64 body not decoded:\n%s", text)
	}
	if !strings.Contains(text, "Résumé") {
		t.Errorf("encoded-word subject not decoded:\n%s", text)
	}
	if md.Get("Message-Attachment") != "cv.pdf" {
		t.Errorf("Message-Attachment = %q", md.Get("Message-Attachment"))
	}
}

func TestExtractMailMalformed(t *testing.T) {
	n := New(Config{})
	if _, err := n.extractMail(context.Background(), []byte("no headers here"), pipeline.Defaults(), Metadata{}); err == nil {
		t.Fatal("expected parse error")
	}
}
