package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewSafeClient はSSRF防止付きHTTPクライアントの生成をテストする。
func TestNewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()
	client := guard.NewSafeClient(10*time.Second, 2*1024*1024)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != 10*time.Second {
		t.Errorf("expected timeout %v, got %v", 10*time.Second, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport for dialer-level IP validation")
	}
}

// TestNewSafeClientBlocksLoopback はSafeClientがループバックへのリクエストを
// ブロックすることをテストする。httptestサーバーは127.0.0.1で起動されるため、
// safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewSSRFGuard()
	client := guard.NewSafeClient(5*time.Second, 2*1024*1024)

	_, err := client.Get(ts.URL)
	if err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestValidateURL_PublicURL は公開URLの検証が成功することをテストする。
func TestValidateURL_PublicURL(t *testing.T) {
	guard := NewSSRFGuard()

	publicURLs := []string{
		"https://example.com",
		"https://cdn.example.com/logo.png",
		"http://press.example.org/images/photo.jpg",
	}

	for _, u := range publicURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err != nil {
				t.Errorf("ValidateURL(%q) returned error: %v", u, err)
			}
		})
	}
}

// TestValidateURL_BlockedTargets は内部ネットワーク宛URLの拒否をテストする。
func TestValidateURL_BlockedTargets(t *testing.T) {
	guard := NewSSRFGuard()

	blockedURLs := []string{
		"http://10.0.0.1/logo.png",
		"http://172.16.0.1/logo.png",
		"http://192.168.1.100/logo.png",
		"http://127.0.0.1/logo.png",
		"http://169.254.169.254/latest/meta-data/",
		"http://0.0.0.0/logo.png",
		"http://localhost/logo.png",
		"http://[::1]/logo.png",
	}

	for _, u := range blockedURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) = nil, expected error", u)
			}
		})
	}
}

// TestValidateURL_InvalidInput は不正な入力の拒否をテストする。
func TestValidateURL_InvalidInput(t *testing.T) {
	guard := NewSSRFGuard()

	invalidURLs := []string{
		"",
		"ftp://example.com/logo.png",
		"javascript:alert(1)",
		"file:///etc/passwd",
		"https://",
	}

	for _, u := range invalidURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) = nil, expected error", u)
			}
		})
	}
}
