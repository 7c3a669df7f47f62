package publisher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
)

// --- モック定義 ---

type mockPublisherRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.Publisher, error)
	findByNameFn func(ctx context.Context, name string) (*model.Publisher, error)
	createFn     func(ctx context.Context, publisher *model.Publisher) error
	listFn       func(ctx context.Context) ([]*model.Publisher, error)
	updateLogoFn func(ctx context.Context, publisherID string, logoData []byte, logoMime string) error
}

func (m *mockPublisherRepo) FindByID(ctx context.Context, id string) (*model.Publisher, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPublisherRepo) FindByName(ctx context.Context, name string) (*model.Publisher, error) {
	if m.findByNameFn != nil {
		return m.findByNameFn(ctx, name)
	}
	return nil, nil
}

func (m *mockPublisherRepo) Create(ctx context.Context, publisher *model.Publisher) error {
	if m.createFn != nil {
		return m.createFn(ctx, publisher)
	}
	return nil
}

func (m *mockPublisherRepo) List(ctx context.Context) ([]*model.Publisher, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPublisherRepo) UpdateLogo(ctx context.Context, publisherID string, logoData []byte, logoMime string) error {
	if m.updateLogoFn != nil {
		return m.updateLogoFn(ctx, publisherID, logoData, logoMime)
	}
	return nil
}

type mockLogoFetcher struct {
	fetchForSiteFn func(ctx context.Context, siteURL string) ([]byte, string, error)
}

func (m *mockLogoFetcher) FetchLogo(_ context.Context, _ string) ([]byte, string, error) {
	return nil, "", nil
}

func (m *mockLogoFetcher) FetchLogoForSite(ctx context.Context, siteURL string) ([]byte, string, error) {
	if m.fetchForSiteFn != nil {
		return m.fetchForSiteFn(ctx, siteURL)
	}
	return nil, "", nil
}

type mockSSRFValidator struct {
	validateFn func(rawURL string) error
}

func (m *mockSSRFValidator) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func (m *mockSSRFValidator) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

// --- compile-time interface checks ---
var _ repository.PublisherRepository = (*mockPublisherRepo)(nil)
var _ LogoFetcherService = (*mockLogoFetcher)(nil)
var _ SSRFValidator = (*mockSSRFValidator)(nil)

func editor() *model.User {
	return &model.User{ID: "editor-1", Role: model.RoleEditor}
}

// --- テスト ---

func TestCreate_EditorCreatesPublisherWithLogo(t *testing.T) {
	ctx := context.Background()

	var created *model.Publisher
	repo := &mockPublisherRepo{
		createFn: func(ctx context.Context, publisher *model.Publisher) error {
			created = publisher
			return nil
		},
	}
	fetcher := &mockLogoFetcher{
		fetchForSiteFn: func(ctx context.Context, siteURL string) ([]byte, string, error) {
			return []byte{0x89, 0x50, 0x4e, 0x47}, "image/png", nil
		},
	}

	svc := NewService(repo, fetcher, &mockSSRFValidator{})

	publisher, err := svc.Create(ctx, editor(), CreateInput{
		Name:    "Daily Planet",
		Website: "https://dailyplanet.example.com",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if publisher.ID == "" {
		t.Error("expected non-empty publisher ID")
	}
	if created == nil {
		t.Fatal("expected publisher to be persisted")
	}
	if created.LogoMime != "image/png" {
		t.Errorf("logo mime = %q, want image/png", created.LogoMime)
	}
}

func TestCreate_LogoFetchFailureDoesNotBlockCreation(t *testing.T) {
	ctx := context.Background()

	repo := &mockPublisherRepo{}
	fetcher := &mockLogoFetcher{
		fetchForSiteFn: func(ctx context.Context, siteURL string) ([]byte, string, error) {
			return nil, "", nil
		},
	}

	svc := NewService(repo, fetcher, &mockSSRFValidator{})

	publisher, err := svc.Create(ctx, editor(), CreateInput{
		Name:    "Daily Planet",
		Website: "https://dailyplanet.example.com",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if publisher.LogoData != nil {
		t.Error("expected nil logo data when fetch fails")
	}
}

func TestCreate_NonEditorIsForbidden(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockPublisherRepo{}, &mockLogoFetcher{}, &mockSSRFValidator{})

	for _, role := range []model.Role{model.RoleReader, model.RoleJournalist} {
		actor := &model.User{ID: "u-1", Role: role}
		_, err := svc.Create(ctx, actor, CreateInput{Name: "Daily Planet"})
		if err == nil {
			t.Fatalf("expected error for role %s", role)
		}
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
			t.Errorf("role %s: expected FORBIDDEN, got %v", role, err)
		}
	}
}

func TestCreate_EmptyNameIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockPublisherRepo{}, &mockLogoFetcher{}, &mockSSRFValidator{})

	_, err := svc.Create(ctx, editor(), CreateInput{Name: "   "})
	if err == nil {
		t.Fatal("expected error for empty name")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestCreate_UnsafeWebsiteIsRejected(t *testing.T) {
	ctx := context.Background()

	guard := &mockSSRFValidator{
		validateFn: func(rawURL string) error {
			return errors.New("blocked IP address: 169.254.169.254")
		},
	}
	svc := NewService(&mockPublisherRepo{}, &mockLogoFetcher{}, guard)

	_, err := svc.Create(ctx, editor(), CreateInput{
		Name:    "Evil Corp",
		Website: "http://169.254.169.254/latest/meta-data/",
	})
	if err == nil {
		t.Fatal("expected error for unsafe website URL")
	}
}

func TestCreate_DuplicateNamePropagates(t *testing.T) {
	ctx := context.Background()

	repo := &mockPublisherRepo{
		createFn: func(ctx context.Context, publisher *model.Publisher) error {
			return model.NewDuplicatePublisherError(publisher.Name)
		},
	}
	svc := NewService(repo, &mockLogoFetcher{}, &mockSSRFValidator{})

	_, err := svc.Create(ctx, editor(), CreateInput{Name: "Daily Planet"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicatePublisher {
		t.Errorf("expected DUPLICATE_PUBLISHER, got %v", err)
	}
}

func TestGet_NotFoundReturnsAPIError(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockPublisherRepo{}, &mockLogoFetcher{}, &mockSSRFValidator{})

	_, err := svc.Get(ctx, "missing-id")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePublisherNotFound {
		t.Errorf("expected PUBLISHER_NOT_FOUND, got %v", err)
	}
}

func TestList_ReturnsPublishers(t *testing.T) {
	ctx := context.Background()

	repo := &mockPublisherRepo{
		listFn: func(ctx context.Context) ([]*model.Publisher, error) {
			return []*model.Publisher{
				{ID: "p-1", Name: "Daily Planet"},
				{ID: "p-2", Name: "Gotham Gazette"},
			}, nil
		},
	}
	svc := NewService(repo, &mockLogoFetcher{}, &mockSSRFValidator{})

	publishers, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(publishers) != 2 {
		t.Errorf("len = %d, want 2", len(publishers))
	}
}
