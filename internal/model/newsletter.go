// Package model はドメインモデルを定義する。
package model

import "time"

// Newsletter は記者が発行するニュースレターを表す。
// 記事と異なり承認ワークフローを持たず、独立したis_sent/sent_atの組で
// 送信状態を管理する。SentAtは送信エッジ（false→true）で一度だけ設定される。
type Newsletter struct {
	ID          string
	Title       string
	Content     string // サニタイズ済みHTML
	AuthorID    string
	PublisherID *string // nilは独立ニュースレター
	IsSent      bool
	SentAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
