// Package subscription は購読と所属のドメインロジックを提供する。
// 読者→出版社・読者→記者の購読、記者→出版社の所属を扱う。
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/newsdesk/internal/authz"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
)

// Subscriptions は読者の購読一覧。
type Subscriptions struct {
	Publishers  []*model.Publisher
	Journalists []*model.User
}

// Service は購読・所属に関するビジネスロジックを提供する。
type Service struct {
	subsRepo      repository.SubscriptionRepository
	publisherRepo repository.PublisherRepository
	userRepo      repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(
	subsRepo repository.SubscriptionRepository,
	publisherRepo repository.PublisherRepository,
	userRepo repository.UserRepository,
) *Service {
	return &Service{
		subsRepo:      subsRepo,
		publisherRepo: publisherRepo,
		userRepo:      userRepo,
	}
}

// SubscribePublisher は読者を出版社に購読させる。読者ロールのみが実行できる。
// 既に購読済みの場合も成功として扱う（冪等）。
func (s *Service) SubscribePublisher(ctx context.Context, actor *model.User, publisherID string) error {
	if err := authz.Require(actor.Role, authz.CapSubscribe, "出版社の購読"); err != nil {
		return err
	}

	publisher, err := s.publisherRepo.FindByID(ctx, publisherID)
	if err != nil {
		return fmt.Errorf("failed to find publisher: %w", err)
	}
	if publisher == nil {
		return model.NewPublisherNotFoundError(publisherID)
	}

	if err := s.subsRepo.SubscribePublisher(ctx, actor.ID, publisherID); err != nil {
		return err
	}

	slog.Info("reader subscribed to publisher",
		slog.String("user_id", actor.ID),
		slog.String("publisher_id", publisherID),
	)
	return nil
}

// UnsubscribePublisher は出版社の購読を解除する。未購読の場合も成功として扱う。
func (s *Service) UnsubscribePublisher(ctx context.Context, actor *model.User, publisherID string) error {
	if err := authz.Require(actor.Role, authz.CapSubscribe, "出版社の購読解除"); err != nil {
		return err
	}
	return s.subsRepo.UnsubscribePublisher(ctx, actor.ID, publisherID)
}

// SubscribeJournalist は読者を記者に購読させる。読者ロールのみが実行できる。
// 対象がjournalistロールでない場合は未検出として扱う。
func (s *Service) SubscribeJournalist(ctx context.Context, actor *model.User, journalistID string) error {
	if err := authz.Require(actor.Role, authz.CapSubscribe, "記者の購読"); err != nil {
		return err
	}

	journalist, err := s.userRepo.FindByID(ctx, journalistID)
	if err != nil {
		return fmt.Errorf("failed to find journalist: %w", err)
	}
	if journalist == nil || journalist.Role != model.RoleJournalist {
		return model.NewJournalistNotFoundError(journalistID)
	}

	if err := s.subsRepo.SubscribeJournalist(ctx, actor.ID, journalistID); err != nil {
		return err
	}

	slog.Info("reader subscribed to journalist",
		slog.String("user_id", actor.ID),
		slog.String("journalist_id", journalistID),
	)
	return nil
}

// UnsubscribeJournalist は記者の購読を解除する。
func (s *Service) UnsubscribeJournalist(ctx context.Context, actor *model.User, journalistID string) error {
	if err := authz.Require(actor.Role, authz.CapSubscribe, "記者の購読解除"); err != nil {
		return err
	}
	return s.subsRepo.UnsubscribeJournalist(ctx, actor.ID, journalistID)
}

// ListSubscriptions は読者自身の購読一覧を返す。
func (s *Service) ListSubscriptions(ctx context.Context, actor *model.User) (*Subscriptions, error) {
	if err := authz.Require(actor.Role, authz.CapSubscribe, "購読一覧の取得"); err != nil {
		return nil, err
	}

	publishers, err := s.subsRepo.ListPublisherSubscriptions(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list publisher subscriptions: %w", err)
	}
	journalists, err := s.subsRepo.ListJournalistSubscriptions(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list journalist subscriptions: %w", err)
	}

	return &Subscriptions{
		Publishers:  publishers,
		Journalists: journalists,
	}, nil
}

// Affiliate は記者を出版社に所属させる。記者ロールのみが実行できる。
// 既に所属済みの場合も成功として扱う（冪等）。
func (s *Service) Affiliate(ctx context.Context, actor *model.User, publisherID string) error {
	if err := authz.Require(actor.Role, authz.CapAffiliate, "出版社への所属"); err != nil {
		return err
	}

	publisher, err := s.publisherRepo.FindByID(ctx, publisherID)
	if err != nil {
		return fmt.Errorf("failed to find publisher: %w", err)
	}
	if publisher == nil {
		return model.NewPublisherNotFoundError(publisherID)
	}

	if err := s.subsRepo.Affiliate(ctx, actor.ID, publisherID); err != nil {
		return err
	}

	slog.Info("journalist affiliated with publisher",
		slog.String("journalist_id", actor.ID),
		slog.String("publisher_id", publisherID),
	)
	return nil
}

// Unaffiliate は記者の出版社所属を解除する。
// 既存記事の出版社名義は解除後も変化しない。
func (s *Service) Unaffiliate(ctx context.Context, actor *model.User, publisherID string) error {
	if err := authz.Require(actor.Role, authz.CapAffiliate, "出版社所属の解除"); err != nil {
		return err
	}
	return s.subsRepo.Unaffiliate(ctx, actor.ID, publisherID)
}

// ListJournalists は購読先を探すための記者一覧を返す。
func (s *Service) ListJournalists(ctx context.Context) ([]*model.User, error) {
	journalists, err := s.userRepo.ListJournalists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list journalists: %w", err)
	}
	return journalists, nil
}

// GetJournalist は記者のプロフィールを取得する。
// 対象がjournalistロールでない場合は未検出として扱う。
func (s *Service) GetJournalist(ctx context.Context, journalistID string) (*model.User, error) {
	journalist, err := s.userRepo.FindByID(ctx, journalistID)
	if err != nil {
		return nil, fmt.Errorf("failed to find journalist: %w", err)
	}
	if journalist == nil || journalist.Role != model.RoleJournalist {
		return nil, model.NewJournalistNotFoundError(journalistID)
	}
	return journalist, nil
}
