package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// SocialPoster はソーシャルメディアへの投稿インターフェース。
type SocialPoster interface {
	// Post は投稿テキストをソーシャルメディアAPIに送信する。
	// APIトークン未設定の場合は送信せずにErrSocialNotConfiguredを返す。
	Post(ctx context.Context, text string) error
}

// ErrSocialNotConfigured はAPIトークン未設定によるスキップを表す。
var ErrSocialNotConfigured = fmt.Errorf("social media API credentials not configured")

// SocialConfig はソーシャルメディアAPIの接続設定。
type SocialConfig struct {
	APIURL      string // 投稿エンドポイント（X API v2の/2/tweets互換）
	BearerToken string
}

// socialPoster はX API v2互換エンドポイントへのSocialPoster実装。
type socialPoster struct {
	config SocialConfig
	client *http.Client
}

// NewSocialPoster はSocialPosterを生成する。
func NewSocialPoster(config SocialConfig, client *http.Client) *socialPoster {
	if client == nil {
		client = http.DefaultClient
	}
	return &socialPoster{config: config, client: client}
}

// postPayload はX API v2の投稿リクエストボディ。
type postPayload struct {
	Text string `json:"text"`
}

// Post は投稿テキストをJSONボディでPOSTする。
// APIは作成成功時に201を返す。それ以外のステータスは失敗として扱う。
func (p *socialPoster) Post(ctx context.Context, text string) error {
	if p.config.BearerToken == "" {
		return ErrSocialNotConfigured
	}

	body, err := json.Marshal(postPayload{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal post payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to social media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Error("social media post rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("response", string(respBody)),
		)
		return fmt.Errorf("social media API returned status %d", resp.StatusCode)
	}

	return nil
}
