package newsletter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
	"github.com/hitoshi/newsdesk/internal/security"
)

// --- モック定義 ---

type mockNewsletterRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Newsletter, error)
	createFn   func(ctx context.Context, newsletter *model.Newsletter) error
	updateFn   func(ctx context.Context, newsletter *model.Newsletter) error
	deleteFn   func(ctx context.Context, id string) error
	listFn     func(ctx context.Context, authorID string) ([]*model.Newsletter, error)
	markSentFn func(ctx context.Context, id string, now time.Time) (bool, error)
}

func (m *mockNewsletterRepo) FindByID(ctx context.Context, id string) (*model.Newsletter, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockNewsletterRepo) Create(ctx context.Context, newsletter *model.Newsletter) error {
	if m.createFn != nil {
		return m.createFn(ctx, newsletter)
	}
	return nil
}

func (m *mockNewsletterRepo) Update(ctx context.Context, newsletter *model.Newsletter) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, newsletter)
	}
	return nil
}

func (m *mockNewsletterRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockNewsletterRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Newsletter, error) {
	if m.listFn != nil {
		return m.listFn(ctx, authorID)
	}
	return nil, nil
}

func (m *mockNewsletterRepo) MarkSent(ctx context.Context, id string, now time.Time) (bool, error) {
	if m.markSentFn != nil {
		return m.markSentFn(ctx, id, now)
	}
	return true, nil
}

type mockPublisherRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Publisher, error)
}

func (m *mockPublisherRepo) FindByID(ctx context.Context, id string) (*model.Publisher, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPublisherRepo) FindByName(_ context.Context, _ string) (*model.Publisher, error) {
	return nil, nil
}
func (m *mockPublisherRepo) Create(_ context.Context, _ *model.Publisher) error { return nil }
func (m *mockPublisherRepo) List(_ context.Context) ([]*model.Publisher, error) { return nil, nil }
func (m *mockPublisherRepo) UpdateLogo(_ context.Context, _ string, _ []byte, _ string) error {
	return nil
}

type mockSubscriptionRepo struct {
	isAffiliatedFn func(ctx context.Context, journalistID, publisherID string) (bool, error)
}

func (m *mockSubscriptionRepo) SubscribePublisher(_ context.Context, _, _ string) error   { return nil }
func (m *mockSubscriptionRepo) UnsubscribePublisher(_ context.Context, _, _ string) error { return nil }
func (m *mockSubscriptionRepo) IsSubscribedToPublisher(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}
func (m *mockSubscriptionRepo) ListPublisherSubscriptions(_ context.Context, _ string) ([]*model.Publisher, error) {
	return nil, nil
}
func (m *mockSubscriptionRepo) SubscribeJournalist(_ context.Context, _, _ string) error   { return nil }
func (m *mockSubscriptionRepo) UnsubscribeJournalist(_ context.Context, _, _ string) error { return nil }
func (m *mockSubscriptionRepo) IsSubscribedToJournalist(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}
func (m *mockSubscriptionRepo) ListJournalistSubscriptions(_ context.Context, _ string) ([]*model.User, error) {
	return nil, nil
}
func (m *mockSubscriptionRepo) Affiliate(_ context.Context, _, _ string) error   { return nil }
func (m *mockSubscriptionRepo) Unaffiliate(_ context.Context, _, _ string) error { return nil }
func (m *mockSubscriptionRepo) IsAffiliated(ctx context.Context, journalistID, publisherID string) (bool, error) {
	if m.isAffiliatedFn != nil {
		return m.isAffiliatedFn(ctx, journalistID, publisherID)
	}
	return false, nil
}
func (m *mockSubscriptionRepo) ListContentSubscribers(_ context.Context, _ string, _ *string) ([]*model.User, error) {
	return nil, nil
}

type mockNotifier struct {
	mu        sync.Mutex
	published []string // 通知されたニュースレターID
}

func (m *mockNotifier) ArticleApproved(_ context.Context, _ *model.ArticleWithNames) {}

func (m *mockNotifier) NewsletterPublished(_ context.Context, newsletter *model.Newsletter, _, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, newsletter.ID)
}

func (m *mockNotifier) publishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

type nopCollector struct{ newslettersSent int }

func (c *nopCollector) RecordArticleApproved()              {}
func (c *nopCollector) RecordEmailsSent(_ int)              {}
func (c *nopCollector) RecordEmailFailure()                 {}
func (c *nopCollector) RecordSocialPostSent()               {}
func (c *nopCollector) RecordSocialPostFailure(_ string)    {}
func (c *nopCollector) RecordSocialPostSkipped()            {}
func (c *nopCollector) RecordNewsletterSent()               { c.newslettersSent++ }
func (c *nopCollector) RecordNotifyLatency(_ time.Duration) {}

var _ repository.NewsletterRepository = (*mockNewsletterRepo)(nil)
var _ repository.PublisherRepository = (*mockPublisherRepo)(nil)
var _ repository.SubscriptionRepository = (*mockSubscriptionRepo)(nil)

func journalist() *model.User {
	return &model.User{ID: "journalist-1", Username: "taro", Role: model.RoleJournalist}
}

func editor() *model.User {
	return &model.User{ID: "editor-1", Username: "hanako", Role: model.RoleEditor}
}

func newTestService(nr *mockNewsletterRepo, pr *mockPublisherRepo, sr *mockSubscriptionRepo, n *mockNotifier, c *nopCollector) *Service {
	if pr == nil {
		pr = &mockPublisherRepo{}
	}
	if sr == nil {
		sr = &mockSubscriptionRepo{}
	}
	if n == nil {
		n = &mockNotifier{}
	}
	if c == nil {
		c = &nopCollector{}
	}
	return NewService(nr, pr, sr, security.NewContentSanitizer(), n, c)
}

// --- テスト ---

func TestCreate_JournalistCreatesIndependentNewsletter(t *testing.T) {
	ctx := context.Background()

	var created *model.Newsletter
	repo := &mockNewsletterRepo{
		createFn: func(ctx context.Context, newsletter *model.Newsletter) error {
			created = newsletter
			return nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	got, err := svc.Create(ctx, journalist(), Input{
		Title:   "週刊テックまとめ",
		Content: "<p>今週のニュース</p><script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created == nil {
		t.Fatal("expected newsletter to be persisted")
	}
	if got.AuthorID != "journalist-1" {
		t.Errorf("AuthorID = %q, want journalist-1", got.AuthorID)
	}
	if got.PublisherID != nil {
		t.Errorf("PublisherID = %v, want nil", got.PublisherID)
	}
	if got.IsSent {
		t.Error("new newsletter must not be marked sent")
	}
	// scriptタグはサニタイズで除去される
	if want := "<p>今週のニュース</p>"; got.Content != want {
		t.Errorf("Content = %q, want %q", got.Content, want)
	}
}

func TestCreate_NonJournalistIsForbidden(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockNewsletterRepo{}, nil, nil, nil, nil)

	for _, actor := range []*model.User{
		{ID: "r-1", Role: model.RoleReader},
		{ID: "e-1", Role: model.RoleEditor},
	} {
		_, err := svc.Create(ctx, actor, Input{Title: "t", Content: "c"})
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
			t.Errorf("role %s: expected FORBIDDEN, got %v", actor.Role, err)
		}
	}
}

func TestCreate_PublisherNewsletterRequiresAffiliation(t *testing.T) {
	ctx := context.Background()

	pubRepo := &mockPublisherRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Publisher, error) {
			return &model.Publisher{ID: id, Name: "Daily Planet"}, nil
		},
	}
	subsRepo := &mockSubscriptionRepo{
		isAffiliatedFn: func(ctx context.Context, journalistID, publisherID string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(&mockNewsletterRepo{}, pubRepo, subsRepo, nil, nil)

	pubID := "pub-1"
	_, err := svc.Create(ctx, journalist(), Input{Title: "t", Content: "c", PublisherID: &pubID})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotAffiliated {
		t.Errorf("expected NOT_AFFILIATED, got %v", err)
	}
}

func TestUpdate_SentNewsletterIsImmutable(t *testing.T) {
	ctx := context.Background()

	sentAt := time.Now()
	repo := &mockNewsletterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Newsletter, error) {
			return &model.Newsletter{
				ID:       id,
				Title:    "送信済み",
				AuthorID: "journalist-1",
				IsSent:   true,
				SentAt:   &sentAt,
			}, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	_, err := svc.Update(ctx, journalist(), "n-1", Input{Title: "変更後", Content: "c"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("expected VALIDATION error, got %v", err)
	}
}

func TestUpdate_OnlyAuthorOrEditor(t *testing.T) {
	ctx := context.Background()

	repo := &mockNewsletterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Newsletter, error) {
			return &model.Newsletter{ID: id, Title: "t", AuthorID: "journalist-1"}, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	other := &model.User{ID: "journalist-2", Role: model.RoleJournalist}
	_, err := svc.Update(ctx, other, "n-1", Input{Title: "t2", Content: "c"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("other journalist: expected FORBIDDEN, got %v", err)
	}

	// 編集者は他人のニュースレターも更新できる
	if _, err := svc.Update(ctx, editor(), "n-1", Input{Title: "t2", Content: "c"}); err != nil {
		t.Errorf("editor update error = %v", err)
	}
}

func TestDelete_UnknownNewsletter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockNewsletterRepo{}, nil, nil, nil, nil)

	err := svc.Delete(ctx, journalist(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNewsletterNotFound {
		t.Errorf("expected NEWSLETTER_NOT_FOUND, got %v", err)
	}
}

func TestSend_FiresNotificationOnce(t *testing.T) {
	ctx := context.Background()

	sent := false
	repo := &mockNewsletterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Newsletter, error) {
			return &model.Newsletter{ID: id, Title: "t", Content: "c", AuthorID: "journalist-1", IsSent: sent}, nil
		},
		markSentFn: func(ctx context.Context, id string, now time.Time) (bool, error) {
			if sent {
				return false, nil
			}
			sent = true
			return true, nil
		},
	}
	notifier := &mockNotifier{}
	collector := &nopCollector{}
	svc := newTestService(repo, nil, nil, notifier, collector)

	if _, err := svc.Send(ctx, journalist(), "n-1"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	// 再送信は冪等に成功するが配信は起動しない
	if _, err := svc.Send(ctx, journalist(), "n-1"); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}

	if got := notifier.publishedCount(); got != 1 {
		t.Errorf("notifications = %d, want exactly 1", got)
	}
	if collector.newslettersSent != 1 {
		t.Errorf("RecordNewsletterSent calls = %d, want 1", collector.newslettersSent)
	}
}

func TestSend_OnlyAuthorCanSend(t *testing.T) {
	ctx := context.Background()

	repo := &mockNewsletterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Newsletter, error) {
			return &model.Newsletter{ID: id, AuthorID: "journalist-1"}, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	other := &model.User{ID: "journalist-2", Role: model.RoleJournalist}
	_, err := svc.Send(ctx, other, "n-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}

	// 編集者であっても送信は著者のみ
	_, err = svc.Send(ctx, editor(), "n-1")
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("editor: expected FORBIDDEN, got %v", err)
	}
}

func TestSend_ConcurrentSendsOnlyOneDelivers(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	casFired := false
	repo := &mockNewsletterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Newsletter, error) {
			return &model.Newsletter{ID: id, Title: "t", Content: "c", AuthorID: "journalist-1"}, nil
		},
		markSentFn: func(ctx context.Context, id string, now time.Time) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if casFired {
				return false, nil
			}
			casFired = true
			return true, nil
		},
	}
	notifier := &mockNotifier{}
	svc := newTestService(repo, nil, nil, notifier, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Send(ctx, journalist(), "n-1"); err != nil {
				t.Errorf("Send() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := notifier.publishedCount(); got != 1 {
		t.Errorf("notifications = %d, want exactly 1", got)
	}
}

func TestListMine_ReturnsOwnNewsletters(t *testing.T) {
	ctx := context.Background()

	repo := &mockNewsletterRepo{
		listFn: func(ctx context.Context, authorID string) ([]*model.Newsletter, error) {
			if authorID != "journalist-1" {
				t.Errorf("authorID = %q, want journalist-1", authorID)
			}
			return []*model.Newsletter{{ID: "n-1"}, {ID: "n-2"}}, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	newsletters, err := svc.ListMine(ctx, journalist())
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(newsletters) != 2 {
		t.Errorf("len = %d, want 2", len(newsletters))
	}
}
