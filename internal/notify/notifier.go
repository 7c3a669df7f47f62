// Package notify は記事承認・ニュースレター送信に伴う通知ファンアウトを提供する。
//
// ファンアウトは承認エッジ（未承認→承認）で一度だけ起動され、
// メール通知とソーシャル投稿の2チャネルに配信する。
// 両チャネルは互いに独立しており、一方の失敗は他方を止めない。
// 配信はベストエフォートで、失敗してもリトライせずログとメトリクスに残す。
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
)

// SubscriberLister は通知対象の読者を解決するインターフェース。
type SubscriberLister interface {
	// ListContentSubscribers は著者購読と出版社購読の重複排除済み和集合を返す。
	ListContentSubscribers(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error)
}

// Notifier は通知ファンアウトのインターフェース。
type Notifier interface {
	// ArticleApproved は承認された記事を購読者へメール通知し、ソーシャルに投稿する。
	ArticleApproved(ctx context.Context, article *model.ArticleWithNames)
	// NewsletterPublished は送信されたニュースレターを購読者へメール通知する。
	NewsletterPublished(ctx context.Context, newsletter *model.Newsletter, authorName, publisherName string)
}

// Service は通知ファンアウトの実装。
type Service struct {
	subscribers SubscriberLister
	mailer      Mailer
	social      SocialPoster
	collector   metrics.MetricsCollector
	baseURL     string
}

// NewService は通知サービスを生成する。
func NewService(
	subscribers SubscriberLister,
	mailer Mailer,
	social SocialPoster,
	collector metrics.MetricsCollector,
	baseURL string,
) *Service {
	return &Service{
		subscribers: subscribers,
		mailer:      mailer,
		social:      social,
		collector:   collector,
		baseURL:     baseURL,
	}
}

// ArticleApproved は記事承認のファンアウトを実行する。
// メールとソーシャルは独立したチャネルとして処理され、
// どちらかの失敗がもう一方の配信を妨げることはない。
func (s *Service) ArticleApproved(ctx context.Context, article *model.ArticleWithNames) {
	start := time.Now()

	s.sendArticleEmails(ctx, article)
	s.postArticleToSocial(ctx, article)

	s.collector.RecordNotifyLatency(time.Since(start))
}

// sendArticleEmails は購読者全員に記事通知メールを送信する。
// 購読者がいない場合は何もしない。
func (s *Service) sendArticleEmails(ctx context.Context, article *model.ArticleWithNames) {
	subscribers, err := s.subscribers.ListContentSubscribers(ctx, article.AuthorID, article.PublisherID)
	if err != nil {
		slog.Error("failed to resolve subscribers for article notification",
			slog.String("article_id", article.ID),
			slog.String("error", err.Error()),
		)
		s.collector.RecordEmailFailure()
		return
	}
	if len(subscribers) == 0 {
		return
	}

	subject, body := BuildArticleEmail(article, ArticleURL(s.baseURL, article.ID))

	var messages []EmailMessage
	for _, subscriber := range subscribers {
		if subscriber.Email == "" {
			continue
		}
		messages = append(messages, EmailMessage{
			To:      subscriber.Email,
			Subject: subject,
			Body:    body,
		})
	}

	sent, err := s.mailer.SendBatch(messages)
	if err != nil {
		slog.Error("failed to send article notification emails",
			slog.String("article_id", article.ID),
			slog.String("error", err.Error()),
		)
		s.collector.RecordEmailFailure()
		return
	}

	s.collector.RecordEmailsSent(sent)
	slog.Info("sent article notification emails",
		slog.String("article_id", article.ID),
		slog.Int("recipients", sent),
	)
}

// postArticleToSocial は記事をソーシャルメディアに投稿する。
// 認証情報が未設定の場合はスキップとして記録し、エラーにしない。
func (s *Service) postArticleToSocial(ctx context.Context, article *model.ArticleWithNames) {
	text := BuildSocialPost(article.Title, article.Summary, ArticleURL(s.baseURL, article.ID))

	err := s.social.Post(ctx, text)
	if err == nil {
		s.collector.RecordSocialPostSent()
		slog.Info("posted article to social media", slog.String("article_id", article.ID))
		return
	}

	if errors.Is(err, ErrSocialNotConfigured) {
		s.collector.RecordSocialPostSkipped()
		slog.Info("social media credentials not configured, skipping post",
			slog.String("article_id", article.ID),
		)
		return
	}

	s.collector.RecordSocialPostFailure("post_error")
	slog.Error("failed to post article to social media",
		slog.String("article_id", article.ID),
		slog.String("error", err.Error()),
	)
}

// NewsletterPublished はニュースレターを購読者へメール配信する。
func (s *Service) NewsletterPublished(ctx context.Context, newsletter *model.Newsletter, authorName, publisherName string) {
	subscribers, err := s.subscribers.ListContentSubscribers(ctx, newsletter.AuthorID, newsletter.PublisherID)
	if err != nil {
		slog.Error("failed to resolve subscribers for newsletter",
			slog.String("newsletter_id", newsletter.ID),
			slog.String("error", err.Error()),
		)
		s.collector.RecordEmailFailure()
		return
	}
	if len(subscribers) == 0 {
		return
	}

	subject, body := BuildNewsletterEmail(newsletter, authorName, publisherName)

	var messages []EmailMessage
	for _, subscriber := range subscribers {
		if subscriber.Email == "" {
			continue
		}
		messages = append(messages, EmailMessage{
			To:      subscriber.Email,
			Subject: subject,
			Body:    body,
		})
	}

	sent, err := s.mailer.SendBatch(messages)
	if err != nil {
		slog.Error("failed to send newsletter emails",
			slog.String("newsletter_id", newsletter.ID),
			slog.String("error", err.Error()),
		)
		s.collector.RecordEmailFailure()
		return
	}

	s.collector.RecordEmailsSent(sent)
	slog.Info("sent newsletter emails",
		slog.String("newsletter_id", newsletter.ID),
		slog.Int("recipients", sent),
	)
}

// compile-time interface check
var _ Notifier = (*Service)(nil)

// AsyncNotifier は通知をリクエスト処理から切り離して実行するラッパー。
// 承認APIのレスポンスをファンアウトの完了まで待たせない。
// 通知はリクエストのコンテキストではなく独立したタイムアウト付き
// コンテキストで実行する。承認エッジは既にDBで確定しているため、
// リクエストのキャンセルで通知が失われることはない。
type AsyncNotifier struct {
	inner   Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsyncNotifier はAsyncNotifierを生成する。
func NewAsyncNotifier(inner Notifier, timeout time.Duration) *AsyncNotifier {
	return &AsyncNotifier{inner: inner, timeout: timeout}
}

// ArticleApproved はファンアウトをバックグラウンドで起動する。
func (a *AsyncNotifier) ArticleApproved(_ context.Context, article *model.ArticleWithNames) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.inner.ArticleApproved(ctx, article)
	}()
}

// NewsletterPublished はニュースレター配信をバックグラウンドで起動する。
func (a *AsyncNotifier) NewsletterPublished(_ context.Context, newsletter *model.Newsletter, authorName, publisherName string) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.inner.NewsletterPublished(ctx, newsletter, authorName, publisherName)
	}()
}

// Wait は起動済みの通知がすべて完了するまでブロックする。
// グレースフルシャットダウン時に使用する。
func (a *AsyncNotifier) Wait() {
	a.wg.Wait()
}

// compile-time interface check
var _ Notifier = (*AsyncNotifier)(nil)
