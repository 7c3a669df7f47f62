// Package authz はロールベースの認可ポリシーを定義する。
// 各ハンドラに条件分岐を散らばらせる代わりに、ロール→権限の対応表を
// 一箇所に集約し、サービス層はRequireで宣言的に検査する。
package authz

import (
	"github.com/hitoshi/newsdesk/internal/model"
)

// Capability は保護された操作を表す。
type Capability string

const (
	CapCreateArticle    Capability = "article:create"
	CapEditOwnArticle   Capability = "article:edit_own"
	CapEditAnyArticle   Capability = "article:edit_any"
	CapDeleteOwnArticle Capability = "article:delete_own"
	CapDeleteAnyArticle Capability = "article:delete_any"
	CapApproveArticle   Capability = "article:approve"
	CapCreatePublisher  Capability = "publisher:create"
	CapSubscribe        Capability = "subscription:manage"
	CapAffiliate        Capability = "affiliation:manage"
	CapCreateNewsletter Capability = "newsletter:create"
	CapSendNewsletter   Capability = "newsletter:send"
)

// rolePolicy はロールごとの権限表。ここが認可判定の唯一の情報源。
var rolePolicy = map[model.Role]map[Capability]bool{
	model.RoleReader: {
		CapSubscribe: true,
	},
	model.RoleJournalist: {
		CapCreateArticle:    true,
		CapEditOwnArticle:   true,
		CapDeleteOwnArticle: true,
		CapAffiliate:        true,
		CapCreateNewsletter: true,
		CapSendNewsletter:   true,
	},
	model.RoleEditor: {
		CapEditAnyArticle:   true,
		CapDeleteAnyArticle: true,
		CapApproveArticle:   true,
		CapCreatePublisher:  true,
	},
}

// Can は指定ロールが権限を持つかを返す。未知のロールは常にfalse。
func Can(role model.Role, cap Capability) bool {
	caps, ok := rolePolicy[role]
	if !ok {
		return false
	}
	return caps[cap]
}

// Require は権限を検査し、不足している場合はForbiddenエラーを返す。
// operationはエラーメッセージに埋め込む操作名。
func Require(role model.Role, cap Capability, operation string) error {
	if !Can(role, cap) {
		return model.NewForbiddenError(operation)
	}
	return nil
}

// CanEditArticle は記事の編集可否を所有関係込みで判定する。
// 記者は自分の記事のみ、編集者は全記事を編集できる。
func CanEditArticle(user *model.User, article *model.Article) bool {
	if Can(user.Role, CapEditAnyArticle) {
		return true
	}
	return Can(user.Role, CapEditOwnArticle) && article.AuthorID == user.ID
}

// CanDeleteArticle は記事の削除可否を所有関係込みで判定する。
func CanDeleteArticle(user *model.User, article *model.Article) bool {
	if Can(user.Role, CapDeleteAnyArticle) {
		return true
	}
	return Can(user.Role, CapDeleteOwnArticle) && article.AuthorID == user.ID
}
