// Package model はドメインモデルを定義する。
package model

import "time"

// Article は記者が執筆するニュース記事を表す。
// 作成時は未承認（Pending）で、編集者による承認で公開される。
// 承認は一方向の遷移で、取り消しはできない。
// ApprovedAt/PublishedAtは承認エッジ（false→true）の瞬間に一度だけ設定され、
// 以後リセットされない。
type Article struct {
	ID               string
	Title            string
	Content          string // サニタイズ済みHTML
	Summary          string
	FeaturedImageURL string
	AuthorID         string  // role=journalist（バリデーションで強制）
	PublisherID      *string // nilは独立記事（Independent）
	IsApproved       bool
	ApprovedBy       *string // role=editor
	ApprovedAt       *time.Time
	PublishedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ArticleWithNames は記事と著者・出版社の表示名を結合したモデル。
// usersテーブル・publishersテーブルとJOINして取得される。
type ArticleWithNames struct {
	Article
	AuthorName    string // 著者の表示名（姓名、なければユーザー名）
	PublisherName string // 出版社名。独立記事の場合は空
}
