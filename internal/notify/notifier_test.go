package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
)

// --- モック定義 ---

type mockSubscriberLister struct {
	listFn func(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error)
}

func (m *mockSubscriberLister) ListContentSubscribers(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, authorID, publisherID)
	}
	return nil, nil
}

type mockMailer struct {
	mu       sync.Mutex
	sendFn   func(messages []EmailMessage) (int, error)
	received [][]EmailMessage
}

func (m *mockMailer) SendBatch(messages []EmailMessage) (int, error) {
	m.mu.Lock()
	m.received = append(m.received, messages)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(messages)
	}
	return len(messages), nil
}

type mockSocialPoster struct {
	mu     sync.Mutex
	postFn func(ctx context.Context, text string) error
	posts  []string
}

func (m *mockSocialPoster) Post(ctx context.Context, text string) error {
	m.mu.Lock()
	m.posts = append(m.posts, text)
	m.mu.Unlock()
	if m.postFn != nil {
		return m.postFn(ctx, text)
	}
	return nil
}

// recordingCollector はメトリクス呼び出しを数えるテスト用コレクタ。
type recordingCollector struct {
	mu            sync.Mutex
	emailsSent    int
	emailFailures int
	socialSent    int
	socialFailed  int
	socialSkipped int
}

func (c *recordingCollector) RecordArticleApproved() {}
func (c *recordingCollector) RecordEmailsSent(count int) {
	c.mu.Lock()
	c.emailsSent += count
	c.mu.Unlock()
}
func (c *recordingCollector) RecordEmailFailure() {
	c.mu.Lock()
	c.emailFailures++
	c.mu.Unlock()
}
func (c *recordingCollector) RecordSocialPostSent() {
	c.mu.Lock()
	c.socialSent++
	c.mu.Unlock()
}
func (c *recordingCollector) RecordSocialPostFailure(reason string) {
	c.mu.Lock()
	c.socialFailed++
	c.mu.Unlock()
}
func (c *recordingCollector) RecordSocialPostSkipped() {
	c.mu.Lock()
	c.socialSkipped++
	c.mu.Unlock()
}
func (c *recordingCollector) RecordNewsletterSent()                      {}
func (c *recordingCollector) RecordNotifyLatency(duration time.Duration) {}

var _ metrics.MetricsCollector = (*recordingCollector)(nil)

func testArticle() *model.ArticleWithNames {
	publisherID := "pub-1"
	return &model.ArticleWithNames{
		Article: model.Article{
			ID:          "article-1",
			Title:       "速報記事",
			Summary:     "要約",
			AuthorID:    "journalist-1",
			PublisherID: &publisherID,
		},
		AuthorName:    "Taro Yamada",
		PublisherName: "Daily Planet",
	}
}

// --- テスト ---

func TestArticleApproved_EmailsAllSubscribersOnce(t *testing.T) {
	// 3人の購読者（和集合は重複排除済みでリポジトリから返る）
	lister := &mockSubscriberLister{
		listFn: func(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error) {
			return []*model.User{
				{ID: "r-1", Email: "r1@example.com"},
				{ID: "r-2", Email: "r2@example.com"},
				{ID: "r-3", Email: "r3@example.com"},
			}, nil
		},
	}
	mailer := &mockMailer{}
	social := &mockSocialPoster{}
	collector := &recordingCollector{}

	svc := NewService(lister, mailer, social, collector, "https://news.example.com")
	svc.ArticleApproved(context.Background(), testArticle())

	if len(mailer.received) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(mailer.received))
	}
	if got := len(mailer.received[0]); got != 3 {
		t.Errorf("batch size = %d, want 3", got)
	}
	if collector.emailsSent != 3 {
		t.Errorf("emailsSent metric = %d, want 3", collector.emailsSent)
	}

	// ソーシャル投稿も1回だけ
	if len(social.posts) != 1 {
		t.Fatalf("expected 1 social post, got %d", len(social.posts))
	}
	if !strings.Contains(social.posts[0], "速報記事") {
		t.Errorf("social post missing title: %q", social.posts[0])
	}
	if collector.socialSent != 1 {
		t.Errorf("socialSent metric = %d, want 1", collector.socialSent)
	}
}

func TestArticleApproved_SkipsSubscribersWithoutEmail(t *testing.T) {
	lister := &mockSubscriberLister{
		listFn: func(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error) {
			return []*model.User{
				{ID: "r-1", Email: "r1@example.com"},
				{ID: "r-2", Email: ""},
			}, nil
		},
	}
	mailer := &mockMailer{}

	svc := NewService(lister, mailer, &mockSocialPoster{}, &recordingCollector{}, "https://news.example.com")
	svc.ArticleApproved(context.Background(), testArticle())

	if got := len(mailer.received[0]); got != 1 {
		t.Errorf("batch size = %d, want 1 (empty email skipped)", got)
	}
}

func TestArticleApproved_NoSubscribers_NoEmailButStillPostsSocial(t *testing.T) {
	mailer := &mockMailer{}
	social := &mockSocialPoster{}

	svc := NewService(&mockSubscriberLister{}, mailer, social, &recordingCollector{}, "https://news.example.com")
	svc.ArticleApproved(context.Background(), testArticle())

	if len(mailer.received) != 0 {
		t.Errorf("expected no email batches, got %d", len(mailer.received))
	}
	if len(social.posts) != 1 {
		t.Errorf("expected social post despite no subscribers, got %d", len(social.posts))
	}
}

func TestArticleApproved_EmailFailureDoesNotBlockSocial(t *testing.T) {
	mailer := &mockMailer{
		sendFn: func(messages []EmailMessage) (int, error) {
			return 0, errors.New("smtp connection refused")
		},
	}
	lister := &mockSubscriberLister{
		listFn: func(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error) {
			return []*model.User{{ID: "r-1", Email: "r1@example.com"}}, nil
		},
	}
	social := &mockSocialPoster{}
	collector := &recordingCollector{}

	svc := NewService(lister, mailer, social, collector, "https://news.example.com")
	svc.ArticleApproved(context.Background(), testArticle())

	if collector.emailFailures != 1 {
		t.Errorf("emailFailures = %d, want 1", collector.emailFailures)
	}
	if len(social.posts) != 1 {
		t.Error("social post should proceed despite email failure")
	}
	if collector.socialSent != 1 {
		t.Errorf("socialSent = %d, want 1", collector.socialSent)
	}
}

func TestArticleApproved_SocialFailureDoesNotAffectEmails(t *testing.T) {
	lister := &mockSubscriberLister{
		listFn: func(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error) {
			return []*model.User{{ID: "r-1", Email: "r1@example.com"}}, nil
		},
	}
	social := &mockSocialPoster{
		postFn: func(ctx context.Context, text string) error {
			return errors.New("api returned status 500")
		},
	}
	collector := &recordingCollector{}

	svc := NewService(lister, &mockMailer{}, social, collector, "https://news.example.com")
	svc.ArticleApproved(context.Background(), testArticle())

	if collector.emailsSent != 1 {
		t.Errorf("emailsSent = %d, want 1", collector.emailsSent)
	}
	if collector.socialFailed != 1 {
		t.Errorf("socialFailed = %d, want 1", collector.socialFailed)
	}
}

func TestArticleApproved_UnconfiguredSocialIsSkippedNotFailed(t *testing.T) {
	social := &mockSocialPoster{
		postFn: func(ctx context.Context, text string) error {
			return ErrSocialNotConfigured
		},
	}
	collector := &recordingCollector{}

	svc := NewService(&mockSubscriberLister{}, &mockMailer{}, social, collector, "https://news.example.com")
	svc.ArticleApproved(context.Background(), testArticle())

	if collector.socialSkipped != 1 {
		t.Errorf("socialSkipped = %d, want 1", collector.socialSkipped)
	}
	if collector.socialFailed != 0 {
		t.Errorf("socialFailed = %d, want 0", collector.socialFailed)
	}
}

func TestNewsletterPublished_EmailsSubscribers(t *testing.T) {
	lister := &mockSubscriberLister{
		listFn: func(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error) {
			return []*model.User{
				{ID: "r-1", Email: "r1@example.com"},
				{ID: "r-2", Email: "r2@example.com"},
			}, nil
		},
	}
	mailer := &mockMailer{}
	collector := &recordingCollector{}

	svc := NewService(lister, mailer, &mockSocialPoster{}, collector, "https://news.example.com")
	svc.NewsletterPublished(context.Background(), &model.Newsletter{
		ID:       "nl-1",
		Title:    "週刊ダイジェスト",
		Content:  "まとめ",
		AuthorID: "journalist-1",
	}, "Taro Yamada", "")

	if len(mailer.received) != 1 || len(mailer.received[0]) != 2 {
		t.Fatalf("expected 1 batch of 2 messages, got %v", mailer.received)
	}
	if collector.emailsSent != 2 {
		t.Errorf("emailsSent = %d, want 2", collector.emailsSent)
	}
}

func TestAsyncNotifier_RunsFanOutInBackground(t *testing.T) {
	done := make(chan struct{})
	lister := &mockSubscriberLister{
		listFn: func(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error) {
			close(done)
			return nil, nil
		},
	}
	inner := NewService(lister, &mockMailer{}, &mockSocialPoster{}, &recordingCollector{}, "https://news.example.com")
	async := NewAsyncNotifier(inner, 5*time.Second)

	async.ArticleApproved(context.Background(), testArticle())
	async.Wait()

	select {
	case <-done:
	default:
		t.Fatal("expected fan-out to have run")
	}
}
