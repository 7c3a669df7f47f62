// Package article は記事の投稿・承認・閲覧のドメインロジックを提供する。
package article

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

// URLValidator はユーザー入力URLの事前検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// CreateInput は記事投稿の入力。
type CreateInput struct {
	Title            string
	Content          string
	Summary          string
	FeaturedImageURL string
	PublisherID      *string // nilは独立記事
}

// UpdateInput は記事更新の入力。
type UpdateInput struct {
	Title            string
	Content          string
	Summary          string
	FeaturedImageURL string
	PublisherID      *string
}

// Service は記事に関するビジネスロジックを提供する。
type Service struct {
	articleRepo   repository.ArticleRepository
	publisherRepo repository.PublisherRepository
	userRepo      repository.UserRepository
	subsRepo      repository.SubscriptionRepository
	sanitizer     security.ContentSanitizerService
	urlValidator  URLValidator
	notifier      notify.Notifier
	collector     metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	articleRepo repository.ArticleRepository,
	publisherRepo repository.PublisherRepository,
	userRepo repository.UserRepository,
	subsRepo repository.SubscriptionRepository,
	sanitizer security.ContentSanitizerService,
	urlValidator URLValidator,
	notifier notify.Notifier,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		articleRepo:   articleRepo,
		publisherRepo: publisherRepo,
		userRepo:      userRepo,
		subsRepo:      subsRepo,
		sanitizer:     sanitizer,
		urlValidator:  urlValidator,
		notifier:      notifier,
		collector:     collector,
	}
}

// ListVisible は読者の購読に基づく可視記事一覧を返す。
// 承認済みかつ、購読中の出版社または記者による記事のみが対象。
// 複数の購読経路を持つ記事も1回だけ現れる。
func (s *Service) ListVisible(ctx context.Context, actor *model.User, cursor time.Time, limit int) ([]model.ArticleWithNames, error) {
	if actor.Role != model.RoleReader {
		return nil, model.NewForbiddenError("購読フィードの閲覧")
	}

	articles, err := s.articleRepo.ListVisible(ctx, actor.ID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible articles: %w", err)
	}
	return articles, nil
}

// ListByPublisher は購読中の出版社の承認済み記事を返す。
// 未購読の出版社を指定した場合は空リストではなくNOT_SUBSCRIBEDエラーを返す。
func (s *Service) ListByPublisher(ctx context.Context, actor *model.User, publisherID string, limit int) ([]model.ArticleWithNames, error) {
	publisher, err := s.publisherRepo.FindByID(ctx, publisherID)
	if err != nil {
		return nil, fmt.Errorf("failed to find publisher: %w", err)
	}
	if publisher == nil {
		return nil, model.NewPublisherNotFoundError(publisherID)
	}

	if actor.Role != model.RoleEditor {
		subscribed, err := s.subsRepo.IsSubscribedToPublisher(ctx, actor.ID, publisherID)
		if err != nil {
			return nil, fmt.Errorf("failed to check subscription: %w", err)
		}
		if !subscribed {
			return nil, model.NewNotSubscribedError("出版社")
		}
	}

	articles, err := s.articleRepo.ListApprovedByPublisher(ctx, publisherID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list publisher articles: %w", err)
	}
	return articles, nil
}

// ListByJournalist は購読中の記者の承認済み記事を返す。
// 対象ユーザーがjournalistロールでない場合も未検出として扱う。
func (s *Service) ListByJournalist(ctx context.Context, actor *model.User, journalistID string, limit int) ([]model.ArticleWithNames, error) {
	journalist, err := s.userRepo.FindByID(ctx, journalistID)
	if err != nil {
		return nil, fmt.Errorf("failed to find journalist: %w", err)
	}
	if journalist == nil || journalist.Role != model.RoleJournalist {
		return nil, model.NewJournalistNotFoundError(journalistID)
	}

	if actor.Role != model.RoleEditor {
		subscribed, err := s.subsRepo.IsSubscribedToJournalist(ctx, actor.ID, journalistID)
		if err != nil {
			return nil, fmt.Errorf("failed to check subscription: %w", err)
		}
		if !subscribed {
			return nil, model.NewNotSubscribedError("記者")
		}
	}

	articles, err := s.articleRepo.ListApprovedByAuthor(ctx, journalistID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journalist articles: %w", err)
	}
	return articles, nil
}

// Get は記事を閲覧者の権限に応じて取得する。
// 編集者は全記事、記者は自分の記事を無条件に閲覧できる。
// 読者は承認済みかつ購読経路のある記事のみを閲覧できる。
func (s *Service) Get(ctx context.Context, actor *model.User, articleID string) (*model.ArticleWithNames, error) {
	article, err := s.articleRepo.FindByIDWithNames(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	if actor.Role == model.RoleEditor || article.AuthorID == actor.ID {
		return article, nil
	}

	// 読者: 承認済みかつ購読経路が必要
	if !article.IsApproved {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	subscribed, err := s.subsRepo.IsSubscribedToJournalist(ctx, actor.ID, article.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check journalist subscription: %w", err)
	}
	if !subscribed && article.PublisherID != nil {
		subscribed, err = s.subsRepo.IsSubscribedToPublisher(ctx, actor.ID, *article.PublisherID)
		if err != nil {
			return nil, fmt.Errorf("failed to check publisher subscription: %w", err)
		}
	}
	if !subscribed {
		return nil, model.NewNotSubscribedError("記事の著者・出版社")
	}

	return article, nil
}

// Create は記事を投稿する。記者ロールのみが実行できる。
// 出版社名義で投稿する場合はその出版社に所属している必要がある。
// 新規記事は常に未承認で作成され、承認フィールドは空のまま永続化される。
func (s *Service) Create(ctx context.Context, actor *model.User, input CreateInput) (*model.Article, error) {
	if err := authz.Require(actor.Role, authz.CapCreateArticle, "記事の投稿"); err != nil {
		return nil, err
	}
	// 著者ロールの検証は永続化前に行う
	if actor.Role != model.RoleJournalist {
		return nil, model.NewAuthorNotJournalistError()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, model.NewValidationError("本文は必須です")
	}

	if input.FeaturedImageURL != "" {
		if err := s.urlValidator.ValidateURL(input.FeaturedImageURL); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("アイキャッチ画像URLが不正です: %v", err))
		}
	}

	if input.PublisherID != nil {
		if err := s.checkAffiliation(ctx, actor.ID, *input.PublisherID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	article := &model.Article{
		ID:               uuid.New().String(),
		Title:            title,
		Content:          s.sanitizer.Sanitize(input.Content),
		Summary:          strings.TrimSpace(input.Summary),
		FeaturedImageURL: input.FeaturedImageURL,
		AuthorID:         actor.ID,
		PublisherID:      input.PublisherID,
		IsApproved:       false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.articleRepo.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	slog.Info("article submitted",
		slog.String("article_id", article.ID),
		slog.String("author_id", actor.ID),
	)

	return article, nil
}

// Update は記事を更新する。記者は自分の記事のみ、編集者は全記事を更新できる。
// 承認状態と承認タイムスタンプはこの操作では変化しない。
func (s *Service) Update(ctx context.Context, actor *model.User, articleID string, input UpdateInput) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	if !authz.CanEditArticle(actor, article) {
		return nil, model.NewForbiddenError("記事の更新")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}

	if input.FeaturedImageURL != "" {
		if err := s.urlValidator.ValidateURL(input.FeaturedImageURL); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("アイキャッチ画像URLが不正です: %v", err))
		}
	}

	// 出版社の付け替えは著者本人の所属を検証する
	if input.PublisherID != nil && actor.Role == model.RoleJournalist {
		if err := s.checkAffiliation(ctx, article.AuthorID, *input.PublisherID); err != nil {
			return nil, err
		}
	}

	article.Title = title
	article.Content = s.sanitizer.Sanitize(input.Content)
	article.Summary = strings.TrimSpace(input.Summary)
	article.FeaturedImageURL = input.FeaturedImageURL
	article.PublisherID = input.PublisherID

	if err := s.articleRepo.Update(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}

	return article, nil
}

// Delete は記事を削除する。記者は自分の記事のみ、編集者は全記事を削除できる。
func (s *Service) Delete(ctx context.Context, actor *model.User, articleID string) error {
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("failed to find article: %w", err)
	}
	if article == nil {
		return model.NewArticleNotFoundError(articleID)
	}

	if !authz.CanDeleteArticle(actor, article) {
		return model.NewForbiddenError("記事の削除")
	}

	if err := s.articleRepo.Delete(ctx, articleID); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	slog.Info("article deleted",
		slog.String("article_id", articleID),
		slog.String("deleted_by", actor.ID),
	)
	return nil
}

// ListMine は記者自身の全記事（未承認含む）を返す。
func (s *Service) ListMine(ctx context.Context, actor *model.User) ([]*model.Article, error) {
	if actor.Role != model.RoleJournalist {
		return nil, model.NewForbiddenError("自分の記事一覧の取得")
	}

	articles, err := s.articleRepo.ListByAuthor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list own articles: %w", err)
	}
	return articles, nil
}

// ListRecentByJournalist は記者プロフィール表示用の承認済み記事を返す。
// プロフィールは購読判断の材料になるため、購読していなくても閲覧できる。
func (s *Service) ListRecentByJournalist(ctx context.Context, journalistID string, limit int) ([]model.ArticleWithNames, error) {
	articles, err := s.articleRepo.ListApprovedByAuthor(ctx, journalistID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journalist articles: %w", err)
	}
	return articles, nil
}

// ListPending は未承認記事の一覧を返す。編集者ロールのみが実行できる。
func (s *Service) ListPending(ctx context.Context, actor *model.User) ([]model.ArticleWithNames, error) {
	if err := authz.Require(actor.Role, authz.CapApproveArticle, "承認待ち記事一覧の取得"); err != nil {
		return nil, err
	}

	articles, err := s.articleRepo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending articles: %w", err)
	}
	return articles, nil
}

// Approve は記事を承認する。編集者ロールのみが実行できる。
//
// 承認は未承認→承認の一方向遷移で、DBのcompare-and-swapにより
// エッジが発火するのは全リクエスト中ちょうど1回に限られる。
// エッジ発火時のみ通知ファンアウト（メール＋ソーシャル投稿）を起動するため、
// 同時承認や再承認で通知が二重送信されることはない。
// 既に承認済みの記事への承認リクエストは冪等に成功し、
// タイムスタンプと承認者は変化しない。
func (s *Service) Approve(ctx context.Context, actor *model.User, articleID string) (*model.ArticleWithNames, error) {
	if err := authz.Require(actor.Role, authz.CapApproveArticle, "記事の承認"); err != nil {
		return nil, err
	}

	existing, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	if existing == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	edgeFired, err := s.articleRepo.MarkApproved(ctx, articleID, actor.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to approve article: %w", err)
	}

	article, err := s.articleRepo.FindByIDWithNames(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload article: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	if !edgeFired {
		slog.Info("article already approved, skipping notifications",
			slog.String("article_id", articleID),
		)
		return article, nil
	}

	s.collector.RecordArticleApproved()
	slog.Info("article approved",
		slog.String("article_id", articleID),
		slog.String("approved_by", actor.ID),
	)

	s.notifier.ArticleApproved(ctx, article)

	return article, nil
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
