// Package publisher は出版社の登録・管理のドメインロジックを提供する。
package publisher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxLogoSize はロゴ画像の最大サイズ（2MB）。
const maxLogoSize = 2 * 1024 * 1024

// logoTimeout はロゴ取得のタイムアウト。
const logoTimeout = 5 * time.Second

// SSRFValidator はロゴ取得時のSSRF防止インターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// LogoFetcherService は出版社ロゴ取得のインターフェース。
type LogoFetcherService interface {
	// FetchLogo は指定URLからロゴ画像を取得する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	FetchLogo(ctx context.Context, logoURL string) (data []byte, mimeType string, err error)

	// FetchLogoForSite は出版社サイトURLからロゴを推測して取得する。
	// /favicon.ico を試行し、取得失敗時はnilデータと空MIMEを返す。
	FetchLogoForSite(ctx context.Context, siteURL string) (data []byte, mimeType string, err error)
}

// LogoFetcher はロゴ取得機能の実装。
// ロゴはあくまで表示用の飾りなので、取得失敗で出版社登録を
// 失敗させないようエラーを飲み込んでnilを返す。
type LogoFetcher struct {
	ssrfGuard SSRFValidator
}

// NewLogoFetcher はLogoFetcherの新しいインスタンスを生成する。
func NewLogoFetcher(ssrfGuard SSRFValidator) *LogoFetcher {
	return &LogoFetcher{
		ssrfGuard: ssrfGuard,
	}
}

// FetchLogo は指定URLからロゴ画像を取得する。
func (f *LogoFetcher) FetchLogo(ctx context.Context, logoURL string) ([]byte, string, error) {
	if logoURL == "" {
		return nil, "", nil
	}

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(logoURL); err != nil {
			slog.Warn("ロゴ取得: SSRFブロック", "url", logoURL, "error", err)
			return nil, "", nil
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		slog.Warn("ロゴ取得: リクエスト作成失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "Newsdesk/1.0")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("ロゴ取得: HTTPリクエスト失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	// 2xx以外は取得失敗として扱う
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("ロゴ取得: HTTPステータス異常", "url", logoURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	// レスポンスボディを読み込み（最大2MB）
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoSize+1))
	if err != nil {
		slog.Warn("ロゴ取得: レスポンス読み取り失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}

	if int64(len(body)) > maxLogoSize {
		slog.Warn("ロゴ取得: サイズ超過", "url", logoURL, "size", len(body))
		return nil, "", nil
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !isImageMime(mimeType) {
		slog.Warn("ロゴ取得: 画像以外のContent-Type", "url", logoURL, "contentType", mimeType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// FetchLogoForSite は出版社サイトURLからロゴを推測して取得する。
func (f *LogoFetcher) FetchLogoForSite(ctx context.Context, siteURL string) ([]byte, string, error) {
	logoURL := guessDefaultLogoURL(siteURL)
	if logoURL == "" {
		return nil, "", nil
	}
	return f.FetchLogo(ctx, logoURL)
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *LogoFetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(logoTimeout, maxLogoSize)
	}
	return &http.Client{Timeout: logoTimeout}
}

// guessDefaultLogoURL はサイトURLからデフォルトのロゴURLを推測する。
func guessDefaultLogoURL(siteURL string) string {
	if siteURL == "" {
		return ""
	}

	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}

	u.Path = "/favicon.ico"
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// compile-time interface check
var _ LogoFetcherService = (*LogoFetcher)(nil)
