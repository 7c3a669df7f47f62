// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, article, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotSubscribed       = "NOT_SUBSCRIBED"
	ErrCodeArticleNotFound     = "ARTICLE_NOT_FOUND"
	ErrCodePublisherNotFound   = "PUBLISHER_NOT_FOUND"
	ErrCodeJournalistNotFound  = "JOURNALIST_NOT_FOUND"
	ErrCodeNewsletterNotFound  = "NEWSLETTER_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeAuthorNotJournalist = "AUTHOR_NOT_JOURNALIST"
	ErrCodeNotAffiliated       = "NOT_AFFILIATED"
	ErrCodeInvalidRole         = "INVALID_ROLE"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	ErrCodeDuplicatePublisher  = "DUPLICATE_PUBLISHER"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError はロール権限不足のエラーを生成する。
// 権限のない操作（承認・作成・削除等）はサイレントに無視せずハードに拒否する。
func NewForbiddenError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", operation),
		Category: "auth",
		Action:   "必要なロールを持つアカウントでログインしてください。",
	}
}

// NewNotSubscribedError は未購読の対象でフィルタしようとした場合のエラーを生成する。
// 「コンテンツがない」と「アクセス権がない」を区別するため、空リストではなく
// 認可エラーとして返す。
func NewNotSubscribedError(target string) *APIError {
	return &APIError{
		Code:     ErrCodeNotSubscribed,
		Message:  fmt.Sprintf("購読していない%sの記事は閲覧できません。", target),
		Category: "auth",
		Action:   "先に購読してから再度お試しください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "article",
		Action:   "記事IDを確認してください。",
	}
}

// NewPublisherNotFoundError は出版社未検出エラーを生成する。
func NewPublisherNotFoundError(publisherID string) *APIError {
	return &APIError{
		Code:     ErrCodePublisherNotFound,
		Message:  fmt.Sprintf("指定された出版社が見つかりません: %s", publisherID),
		Category: "article",
		Action:   "出版社IDを確認してください。",
	}
}

// NewJournalistNotFoundError は記者未検出エラーを生成する。
// 対象ユーザーが存在してもロールがjournalistでない場合も未検出として扱う。
func NewJournalistNotFoundError(journalistID string) *APIError {
	return &APIError{
		Code:     ErrCodeJournalistNotFound,
		Message:  fmt.Sprintf("指定された記者が見つかりません: %s", journalistID),
		Category: "article",
		Action:   "記者IDを確認してください。",
	}
}

// NewNewsletterNotFoundError はニュースレター未検出エラーを生成する。
func NewNewsletterNotFoundError(newsletterID string) *APIError {
	return &APIError{
		Code:     ErrCodeNewsletterNotFound,
		Message:  fmt.Sprintf("指定されたニュースレターが見つかりません: %s", newsletterID),
		Category: "article",
		Action:   "ニュースレターIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAuthorNotJournalistError は記事の著者がjournalistロールでない場合の
// バリデーションエラーを生成する。永続化前に拒否される。
func NewAuthorNotJournalistError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthorNotJournalist,
		Message:  "記事の著者はjournalistロールを持つ必要があります。",
		Category: "validation",
		Action:   "記者アカウントで記事を作成してください。",
	}
}

// NewNotAffiliatedError は所属していない出版社名義で記事を作成しようとした
// 場合のエラーを生成する。
func NewNotAffiliatedError(publisherID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotAffiliated,
		Message:  fmt.Sprintf("所属していない出版社名義では記事を作成できません: %s", publisherID),
		Category: "validation",
		Action:   "所属している出版社を選択するか、空欄にして独立記事として作成してください。",
	}
}

// NewInvalidRoleError は未定義ロールのエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには reader、editor、journalist のいずれかを指定してください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複のエラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewDuplicatePublisherError は出版社名重複のエラーを生成する。
func NewDuplicatePublisherError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicatePublisher,
		Message:  fmt.Sprintf("この出版社名は既に登録されています: %s", name),
		Category: "validation",
		Action:   "別の名前を指定してください。",
	}
}

// NewValidationError は汎用のバリデーションエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}
