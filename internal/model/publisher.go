// Package model はドメインモデルを定義する。
package model

import "time"

// Publisher は報道機関（出版社）を表す。
// 名前は全体で一意。記事・ニュースレターを0件以上保有する。
type Publisher struct {
	ID          string
	Name        string
	Description string
	Website     string
	LogoData    []byte
	LogoMime    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
