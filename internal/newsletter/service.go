// Package newsletter はニュースレターの作成・配信のドメインロジックを提供する。
package newsletter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newsdesk/internal/authz"
	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/notify"
	"github.com/hitoshi/newsdesk/internal/repository"
	"github.com/hitoshi/newsdesk/internal/security"
)

// Input はニュースレター作成・更新の入力。
type Input struct {
	Title       string
	Content     string
	PublisherID *string // nilは独立ニュースレター
}

// Service はニュースレターに関するビジネスロジックを提供する。
type Service struct {
	newsletterRepo repository.NewsletterRepository
	publisherRepo  repository.PublisherRepository
	subsRepo       repository.SubscriptionRepository
	sanitizer      security.ContentSanitizerService
	notifier       notify.Notifier
	collector      metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	newsletterRepo repository.NewsletterRepository,
	publisherRepo repository.PublisherRepository,
	subsRepo repository.SubscriptionRepository,
	sanitizer security.ContentSanitizerService,
	notifier notify.Notifier,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		newsletterRepo: newsletterRepo,
		publisherRepo:  publisherRepo,
		subsRepo:       subsRepo,
		sanitizer:      sanitizer,
		notifier:       notifier,
		collector:      collector,
	}
}

// Create はニュースレターを作成する。記者ロールのみが実行できる。
// 出版社名義で発行する場合はその出版社に所属している必要がある。
func (s *Service) Create(ctx context.Context, actor *model.User, input Input) (*model.Newsletter, error) {
	if err := authz.Require(actor.Role, authz.CapCreateNewsletter, "ニュースレターの作成"); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, model.NewValidationError("本文は必須です")
	}

	if input.PublisherID != nil {
		if err := s.checkAffiliation(ctx, actor.ID, *input.PublisherID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	newsletter := &model.Newsletter{
		ID:          uuid.New().String(),
		Title:       title,
		Content:     s.sanitizer.Sanitize(input.Content),
		AuthorID:    actor.ID,
		PublisherID: input.PublisherID,
		IsSent:      false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.newsletterRepo.Create(ctx, newsletter); err != nil {
		return nil, fmt.Errorf("failed to create newsletter: %w", err)
	}

	slog.Info("newsletter created",
		slog.String("newsletter_id", newsletter.ID),
		slog.String("author_id", actor.ID),
	)

	return newsletter, nil
}

// Get はニュースレターを取得する。著者と編集者のみが閲覧できる。
func (s *Service) Get(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error) {
	newsletter, err := s.newsletterRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find newsletter: %w", err)
	}
	if newsletter == nil {
		return nil, model.NewNewsletterNotFoundError(id)
	}
	if newsletter.AuthorID != actor.ID && actor.Role != model.RoleEditor {
		return nil, model.NewForbiddenError("ニュースレターの閲覧")
	}
	return newsletter, nil
}

// ListMine は記者自身の全ニュースレターを返す。
func (s *Service) ListMine(ctx context.Context, actor *model.User) ([]*model.Newsletter, error) {
	if err := authz.Require(actor.Role, authz.CapCreateNewsletter, "自分のニュースレター一覧の取得"); err != nil {
		return nil, err
	}

	newsletters, err := s.newsletterRepo.ListByAuthor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list newsletters: %w", err)
	}
	return newsletters, nil
}

// Update はニュースレターを更新する。著者本人と編集者のみが実行できる。
// 送信済みのニュースレターは変更できない。
func (s *Service) Update(ctx context.Context, actor *model.User, id string, input Input) (*model.Newsletter, error) {
	newsletter, err := s.newsletterRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find newsletter: %w", err)
	}
	if newsletter == nil {
		return nil, model.NewNewsletterNotFoundError(id)
	}
	if newsletter.AuthorID != actor.ID && actor.Role != model.RoleEditor {
		return nil, model.NewForbiddenError("ニュースレターの更新")
	}
	if newsletter.IsSent {
		return nil, model.NewValidationError("送信済みのニュースレターは変更できません")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}

	if input.PublisherID != nil && actor.Role == model.RoleJournalist {
		if err := s.checkAffiliation(ctx, newsletter.AuthorID, *input.PublisherID); err != nil {
			return nil, err
		}
	}

	newsletter.Title = title
	newsletter.Content = s.sanitizer.Sanitize(input.Content)
	newsletter.PublisherID = input.PublisherID

	if err := s.newsletterRepo.Update(ctx, newsletter); err != nil {
		return nil, fmt.Errorf("failed to update newsletter: %w", err)
	}
	return newsletter, nil
}

// Delete はニュースレターを削除する。著者本人と編集者のみが実行できる。
func (s *Service) Delete(ctx context.Context, actor *model.User, id string) error {
	newsletter, err := s.newsletterRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find newsletter: %w", err)
	}
	if newsletter == nil {
		return model.NewNewsletterNotFoundError(id)
	}
	if newsletter.AuthorID != actor.ID && actor.Role != model.RoleEditor {
		return model.NewForbiddenError("ニュースレターの削除")
	}

	if err := s.newsletterRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete newsletter: %w", err)
	}
	return nil
}

// Send はニュースレターを購読者へ配信する。著者本人のみが実行できる。
//
// 送信は未送信→送信済みの一方向遷移で、DBのcompare-and-swapにより
// 二重送信リクエストが重なってもメール配信は1回しか起動しない。
// 既に送信済みのニュースレターへの送信リクエストは冪等に成功する。
func (s *Service) Send(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error) {
	if err := authz.Require(actor.Role, authz.CapSendNewsletter, "ニュースレターの送信"); err != nil {
		return nil, err
	}

	newsletter, err := s.newsletterRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find newsletter: %w", err)
	}
	if newsletter == nil {
		return nil, model.NewNewsletterNotFoundError(id)
	}
	if newsletter.AuthorID != actor.ID {
		return nil, model.NewForbiddenError("他の記者のニュースレターの送信")
	}

	edgeFired, err := s.newsletterRepo.MarkSent(ctx, id, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark newsletter sent: %w", err)
	}

	newsletter, err = s.newsletterRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload newsletter: %w", err)
	}
	if newsletter == nil {
		return nil, model.NewNewsletterNotFoundError(id)
	}

	if !edgeFired {
		slog.Info("newsletter already sent, skipping delivery",
			slog.String("newsletter_id", id),
		)
		return newsletter, nil
	}

	publisherName := ""
	if newsletter.PublisherID != nil {
		publisher, err := s.publisherRepo.FindByID(ctx, *newsletter.PublisherID)
		if err == nil && publisher != nil {
			publisherName = publisher.Name
		}
	}

	s.collector.RecordNewsletterSent()
	slog.Info("newsletter sent",
		slog.String("newsletter_id", id),
		slog.String("author_id", actor.ID),
	)

	s.notifier.NewsletterPublished(ctx, newsletter, actor.DisplayName(), publisherName)

	return newsletter, nil
}

// checkAffiliation は記者が出版社に所属しているかを検証する。
func (s *Service) checkAffiliation(ctx context.Context, journalistID, publisherID string) error {
	publisher, err := s.publisherRepo.FindByID(ctx, publisherID)
	if err != nil {
		return fmt.Errorf("failed to find publisher: %w", err)
	}
	if publisher == nil {
		return model.NewPublisherNotFoundError(publisherID)
	}

	affiliated, err := s.subsRepo.IsAffiliated(ctx, journalistID, publisherID)
	if err != nil {
		return fmt.Errorf("failed to check affiliation: %w", err)
	}
	if !affiliated {
		return model.NewNotAffiliatedError(publisherID)
	}
	return nil
}
