package guard

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
)

func TestCheckURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/doc.pdf", false},
		{"http://example.com/page", false},
		{"ftp://evil.com/data", true},      // bad scheme
		{"javascript:alert(1)", true},      // bad scheme
		{"file:///etc/passwd", true},       // bad scheme
		{"http://127.0.0.1/admin", true},   // loopback
		{"http://10.0.0.1/internal", true}, // private
		{"http://192.168.1.1/api", true},   // private
		{"http://[::1]/api", true},         // IPv6 loopback
		{"http://172.16.0.1/secret", true}, // private
		{"http://169.254.169.254/latest/meta-data", true}, // link-local metadata endpoint
	}
	for _, tt := range tests {
		_, err := CheckURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckURL(%q) error=%v, wantErr=%v", tt.url, err, tt.wantErr)
		}
	}
}

func TestCheckURL_SchemeSentinel(t *testing.T) {
	_, err := CheckURL("gopher://example.com")
	if !errors.Is(err, ErrUnsafeScheme) {
		t.Fatalf("error: got %v, want ErrUnsafeScheme", err)
	}
	_, err = CheckURL("http://127.0.0.1/")
	if !errors.Is(err, ErrPrivateAddress) {
		t.Fatalf("error: got %v, want ErrPrivateAddress", err)
	}
}

func TestDialSafeRejectsPrivateAddress(t *testing.T) {
	// The dialer must reject private targets even when a prior CheckURL
	// passed — the host may resolve differently between the two lookups.
	for _, addr := range []string{"127.0.0.1:80", "10.0.0.5:8080", "[::1]:443"} {
		_, err := DialSafe(context.Background(), "tcp", addr)
		if !errors.Is(err, ErrPrivateAddress) {
			t.Errorf("DialSafe(%q) error = %v, want ErrPrivateAddress", addr, err)
		}
	}
}

func TestDialSafeBadAddress(t *testing.T) {
	if _, err := DialSafe(context.Background(), "tcp", "no-port-here"); err == nil {
		t.Fatal("expected error for address without port")
	}
}

func TestSafePath(t *testing.T) {
	tests := []struct {
		base, input string
		wantErr     bool
	}{
		{"/data/files", "abc/def.pdf", false},
		{"/data/files", "../etc/passwd", true},
		{"/data/files", "abc/../def", true},
		{"/data/files", "abc/../../outside", true},
		{"/data/files", "normal-id_123", false},
	}
	for _, tt := range tests {
		_, err := SafePath(tt.base, tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("SafePath(%q, %q) error=%v, wantErr=%v", tt.base, tt.input, err, tt.wantErr)
		}
	}
}

func TestReadAllBounded(t *testing.T) {
	data := strings.Repeat("x", 100)
	got, err := ReadAllBounded(strings.NewReader(data), 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 bytes, got %d", len(got))
	}

	_, err = ReadAllBounded(strings.NewReader(data), 50)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("error: got %v, want ErrTooLarge", err)
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.5.5", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"169.254.1.1", true},
		{"::1", true},
		{"fc00::1", true},
		{"2001:4860:4860::8888", false},
	}
	for _, tt := range tests {
		if got := isPrivateIP(net.ParseIP(tt.ip)); got != tt.private {
			t.Errorf("isPrivateIP(%q) = %v, want %v", tt.ip, got, tt.private)
		}
	}
}
