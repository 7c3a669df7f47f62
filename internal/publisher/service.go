package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newsdesk/internal/authz"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
)

// CreateInput は出版社登録の入力。
type CreateInput struct {
	Name        string
	Description string
	Website     string
}

// Service は出版社に関するビジネスロジックを提供する。
type Service struct {
	publisherRepo repository.PublisherRepository
	logoFetcher   LogoFetcherService
	ssrfGuard     SSRFValidator
}

// NewService はServiceを生成する。
func NewService(
	publisherRepo repository.PublisherRepository,
	logoFetcher LogoFetcherService,
	ssrfGuard SSRFValidator,
) *Service {
	return &Service{
		publisherRepo: publisherRepo,
		logoFetcher:   logoFetcher,
		ssrfGuard:     ssrfGuard,
	}
}

// Create は出版社を登録する。編集者ロールのみが実行できる。
// WebsiteのURLは登録前にSSRF検証され、危険なURLは拒否される。
// ロゴはWebsiteから推測してベストエフォートで取得し、
// 取得失敗しても登録自体は成功する。
func (s *Service) Create(ctx context.Context, actor *model.User, input CreateInput) (*model.Publisher, error) {
	if err := authz.Require(actor.Role, authz.CapCreatePublisher, "出版社の登録"); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.NewValidationError("出版社名は必須です")
	}

	website := strings.TrimSpace(input.Website)
	if website != "" {
		if err := s.ssrfGuard.ValidateURL(website); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("WebサイトURLが不正です: %v", err))
		}
	}

	now := time.Now()
	publisher := &model.Publisher{
		ID:          uuid.New().String(),
		Name:        name,
		Description: input.Description,
		Website:     website,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// ロゴ取得はベストエフォート。失敗しても登録は続行する。
	if website != "" {
		logoData, logoMime, err := s.logoFetcher.FetchLogoForSite(ctx, website)
		if err == nil && logoData != nil {
			publisher.LogoData = logoData
			publisher.LogoMime = logoMime
		}
	}

	if err := s.publisherRepo.Create(ctx, publisher); err != nil {
		return nil, err
	}

	slog.Info("publisher created",
		slog.String("publisher_id", publisher.ID),
		slog.String("name", publisher.Name),
		slog.String("created_by", actor.ID),
	)

	return publisher, nil
}

// Get は指定IDの出版社を取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Publisher, error) {
	publisher, err := s.publisherRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher: %w", err)
	}
	if publisher == nil {
		return nil, model.NewPublisherNotFoundError(id)
	}
	return publisher, nil
}

// List は全出版社を名前昇順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Publisher, error) {
	publishers, err := s.publisherRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list publishers: %w", err)
	}
	return publishers, nil
}

// RefreshLogo は出版社のロゴを再取得して保存する。編集者ロールのみが実行できる。
func (s *Service) RefreshLogo(ctx context.Context, actor *model.User, publisherID string) error {
	if err := authz.Require(actor.Role, authz.CapCreatePublisher, "出版社ロゴの更新"); err != nil {
		return err
	}

	publisher, err := s.Get(ctx, publisherID)
	if err != nil {
		return err
	}
	if publisher.Website == "" {
		return model.NewValidationError("WebサイトURLが未設定のためロゴを取得できません")
	}

	logoData, logoMime, err := s.logoFetcher.FetchLogoForSite(ctx, publisher.Website)
	if err != nil || logoData == nil {
		return model.NewValidationError("ロゴ画像を取得できませんでした")
	}

	if err := s.publisherRepo.UpdateLogo(ctx, publisherID, logoData, logoMime); err != nil {
		return fmt.Errorf("failed to update logo: %w", err)
	}
	return nil
}
