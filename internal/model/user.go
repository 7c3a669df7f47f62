// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。reader/editor/journalistのいずれか1つを持つ。
type Role string

const (
	// RoleReader は購読者（読者）ロール。
	RoleReader Role = "reader"
	// RoleEditor は編集者ロール。記事の承認権限を持つ。
	RoleEditor Role = "editor"
	// RoleJournalist は記者ロール。記事の執筆権限を持つ。
	RoleJournalist Role = "journalist"
)

// IsValid はロールが定義済みのものかどうかを判定する。
func (r Role) IsValid() bool {
	switch r {
	case RoleReader, RoleEditor, RoleJournalist:
		return true
	}
	return false
}

// User はサービス利用ユーザーを表す。
// ロールは相互排他で、1ユーザーにつき常に1つ。
// ロール変更時も購読・所属の関係は削除されず休眠状態として残る。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	Bio          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName は表示名を返す。姓名が未設定の場合はユーザー名にフォールバックする。
func (u *User) DisplayName() string {
	full := u.FirstName
	if u.LastName != "" {
		if full != "" {
			full += " "
		}
		full += u.LastName
	}
	if full == "" {
		return u.Username
	}
	return full
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
