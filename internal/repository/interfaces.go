// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名重複の場合はDuplicateUsernameエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// ListJournalists はjournalistロールの全ユーザーをユーザー名昇順で返す。
	ListJournalists(ctx context.Context) ([]*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PublisherRepository は出版社データの永続化インターフェース。
type PublisherRepository interface {
	// FindByID は指定IDの出版社を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Publisher, error)

	// FindByName は名前で出版社を検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Publisher, error)

	// Create は出版社を作成する。名前重複の場合はDuplicatePublisherエラーを返す。
	Create(ctx context.Context, publisher *model.Publisher) error

	// List は全出版社を名前昇順で返す。
	List(ctx context.Context) ([]*model.Publisher, error)

	// UpdateLogo は出版社のロゴデータを更新する。
	UpdateLogo(ctx context.Context, publisherID string, logoData []byte, logoMime string) error
}

// SubscriptionRepository は購読・所属関係の永続化インターフェース。
// 読者→出版社、読者→記者の購読と、記者→出版社の所属を管理する。
type SubscriptionRepository interface {
	// SubscribePublisher は読者を出版社に購読させる。既に購読済みの場合は何もしない。
	SubscribePublisher(ctx context.Context, userID, publisherID string) error
	// UnsubscribePublisher は出版社の購読を解除する。
	UnsubscribePublisher(ctx context.Context, userID, publisherID string) error
	// IsSubscribedToPublisher は読者が出版社を購読しているかを返す。
	IsSubscribedToPublisher(ctx context.Context, userID, publisherID string) (bool, error)
	// ListPublisherSubscriptions は読者が購読している出版社一覧を名前昇順で返す。
	ListPublisherSubscriptions(ctx context.Context, userID string) ([]*model.Publisher, error)

	// SubscribeJournalist は読者を記者に購読させる。既に購読済みの場合は何もしない。
	SubscribeJournalist(ctx context.Context, userID, journalistID string) error
	// UnsubscribeJournalist は記者の購読を解除する。
	UnsubscribeJournalist(ctx context.Context, userID, journalistID string) error
	// IsSubscribedToJournalist は読者が記者を購読しているかを返す。
	IsSubscribedToJournalist(ctx context.Context, userID, journalistID string) (bool, error)
	// ListJournalistSubscriptions は読者が購読している記者一覧をユーザー名昇順で返す。
	ListJournalistSubscriptions(ctx context.Context, userID string) ([]*model.User, error)

	// Affiliate は記者を出版社に所属させる。既に所属済みの場合は何もしない。
	Affiliate(ctx context.Context, journalistID, publisherID string) error
	// Unaffiliate は記者の出版社所属を解除する。
	Unaffiliate(ctx context.Context, journalistID, publisherID string) error
	// IsAffiliated は記者が出版社に所属しているかを返す。
	IsAffiliated(ctx context.Context, journalistID, publisherID string) (bool, error)

	// ListContentSubscribers は記事・ニュースレターの通知対象となる読者を返す。
	// 著者を購読する読者と、出版社（nilでなければ）を購読する読者の
	// 重複排除済み和集合。両経路で購読していても1回だけ現れる。
	ListContentSubscribers(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error)
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Article, error)

	// FindByIDWithNames は指定IDの記事を著者・出版社名付きで取得する。
	// 見つからない場合はnilを返す。
	FindByIDWithNames(ctx context.Context, id string) (*model.ArticleWithNames, error)

	// Create は新規記事を作成する。
	Create(ctx context.Context, article *model.Article) error

	// Update は記事の編集可能フィールド（タイトル・本文・要約・画像・出版社）を更新する。
	// 承認関連フィールドは変更しない。
	Update(ctx context.Context, article *model.Article) error

	// Delete は指定IDの記事を削除する。
	Delete(ctx context.Context, id string) error

	// ListVisible は読者の購読に基づく可視記事一覧を返す。
	// 承認済みかつ（出版社が購読中 OR 著者が購読中）の記事を、
	// published_at降順・カーソルベースページネーションで取得する。
	// 記事は購読経路が複数あっても1回だけ現れる。
	// cursorがゼロ値の場合は先頭から取得する。
	ListVisible(ctx context.Context, readerID string, cursor time.Time, limit int) ([]model.ArticleWithNames, error)

	// ListApprovedByPublisher は指定出版社の承認済み記事をpublished_at降順で返す。
	ListApprovedByPublisher(ctx context.Context, publisherID string, limit int) ([]model.ArticleWithNames, error)

	// ListApprovedByAuthor は指定記者の承認済み記事をpublished_at降順で返す。
	ListApprovedByAuthor(ctx context.Context, authorID string, limit int) ([]model.ArticleWithNames, error)

	// ListByAuthor は指定記者の全記事（未承認含む）をcreated_at降順で返す。
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Article, error)

	// ListPending は未承認記事の一覧をcreated_at降順で返す。
	ListPending(ctx context.Context) ([]model.ArticleWithNames, error)

	// MarkApproved は未承認→承認のエッジ遷移をcompare-and-swapで実行する。
	// is_approved=FALSEの行に限りapproved_by/approved_at/published_atを刻印し、
	// エッジが発火した場合にtrueを返す。既に承認済みの場合はfalseを返し、
	// タイムスタンプは変更しない。同時承認の競合もこのCASで閉じる。
	MarkApproved(ctx context.Context, articleID, editorID string, now time.Time) (bool, error)
}

// NewsletterRepository はニュースレターデータの永続化インターフェース。
type NewsletterRepository interface {
	// FindByID は指定IDのニュースレターを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Newsletter, error)

	// Create は新規ニュースレターを作成する。
	Create(ctx context.Context, newsletter *model.Newsletter) error

	// Update はニュースレターの編集可能フィールドを更新する。送信状態は変更しない。
	Update(ctx context.Context, newsletter *model.Newsletter) error

	// Delete は指定IDのニュースレターを削除する。
	Delete(ctx context.Context, id string) error

	// ListByAuthor は指定記者の全ニュースレターをcreated_at降順で返す。
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Newsletter, error)

	// MarkSent は未送信→送信済みのエッジ遷移をcompare-and-swapで実行する。
	// エッジが発火した場合にtrueを返す。
	MarkSent(ctx context.Context, newsletterID string, now time.Time) (bool, error)
}
