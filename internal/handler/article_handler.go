package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdesk/internal/article"
	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
)

const (
	// defaultArticlesPerPage は記事一覧の1回の取得件数（デフォルト）。
	defaultArticlesPerPage = 20
	// maxArticlesPerPage は記事一覧の1回の取得件数の上限。
	maxArticlesPerPage = 50
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	ListVisible(ctx context.Context, actor *model.User, cursor time.Time, limit int) ([]model.ArticleWithNames, error)
	ListByPublisher(ctx context.Context, actor *model.User, publisherID string, limit int) ([]model.ArticleWithNames, error)
	ListByJournalist(ctx context.Context, actor *model.User, journalistID string, limit int) ([]model.ArticleWithNames, error)
	Get(ctx context.Context, actor *model.User, articleID string) (*model.ArticleWithNames, error)
	Create(ctx context.Context, actor *model.User, input article.CreateInput) (*model.Article, error)
	Update(ctx context.Context, actor *model.User, articleID string, input article.UpdateInput) (*model.Article, error)
	Delete(ctx context.Context, actor *model.User, articleID string) error
	ListMine(ctx context.Context, actor *model.User) ([]*model.Article, error)
	ListRecentByJournalist(ctx context.Context, journalistID string, limit int) ([]model.ArticleWithNames, error)
	ListPending(ctx context.Context, actor *model.User) ([]model.ArticleWithNames, error)
	Approve(ctx context.Context, actor *model.User, articleID string) (*model.ArticleWithNames, error)
}

// ArticleHandler は記事管理のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// articleRequest は記事投稿・更新リクエストのボディ。
type articleRequest struct {
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	Summary          string  `json:"summary"`
	FeaturedImageURL string  `json:"featured_image_url"`
	PublisherID      *string `json:"publisher_id"`
}

// articleResponse は記事のAPIレスポンス。
type articleResponse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	Summary          string     `json:"summary"`
	FeaturedImageURL string     `json:"featured_image_url,omitempty"`
	AuthorID         string     `json:"author_id"`
	AuthorName       string     `json:"author_name,omitempty"`
	PublisherID      *string    `json:"publisher_id"`
	PublisherName    string     `json:"publisher_name,omitempty"`
	IsApproved       bool       `json:"is_approved"`
	PublishedAt      *time.Time `json:"published_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// articleListResponse は記事一覧のレスポンス。
type articleListResponse struct {
	Articles   []articleResponse `json:"articles"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

// ListFeed は購読に基づく可視記事フィードを取得する。
// GET /api/articles?cursor=RFC3339&limit=20
func (h *ArticleHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))

	var cursor time.Time
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "cursorはRFC3339形式で指定してください。",
				Category: "validation",
				Action:   "前回レスポンスのnext_cursorをそのまま指定してください。",
			})
			return
		}
	}

	articles, err := h.service.ListVisible(r.Context(), actor, cursor, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeArticleList(w, articles, limit)
}

// ListByPublisher は購読中の出版社の承認済み記事一覧を取得する。
// GET /api/articles/by_publisher?publisher_id=xxx
func (h *ArticleHandler) ListByPublisher(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	publisherID := r.URL.Query().Get("publisher_id")
	if publisherID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, missingParamError("publisher_id"))
		return
	}

	articles, err := h.service.ListByPublisher(r.Context(), actor, publisherID, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeArticleList(w, articles, 0)
}

// ListByJournalist は購読中の記者の承認済み記事一覧を取得する。
// GET /api/articles/by_journalist?journalist_id=xxx
func (h *ArticleHandler) ListByJournalist(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	journalistID := r.URL.Query().Get("journalist_id")
	if journalistID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, missingParamError("journalist_id"))
		return
	}

	articles, err := h.service.ListByJournalist(r.Context(), actor, journalistID, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeArticleList(w, articles, 0)
}

// Get は記事詳細を取得する。
// GET /api/articles/{id}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	articleID := chi.URLParam(r, "id")

	detail, err := h.service.Get(r.Context(), actor, articleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArticleResponseWithNames(detail))
}

// Create は記事を投稿する。
// POST /api/articles
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), actor, article.CreateInput{
		Title:            req.Title,
		Content:          req.Content,
		Summary:          req.Summary,
		FeaturedImageURL: req.FeaturedImageURL,
		PublisherID:      req.PublisherID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toArticleResponse(created))
}

// Update は記事を更新する。
// PUT /api/articles/{id}
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	articleID := chi.URLParam(r, "id")

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), actor, articleID, article.UpdateInput{
		Title:            req.Title,
		Content:          req.Content,
		Summary:          req.Summary,
		FeaturedImageURL: req.FeaturedImageURL,
		PublisherID:      req.PublisherID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArticleResponse(updated))
}

// Delete は記事を削除する。
// DELETE /api/articles/{id}
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMine は記者自身の全記事（未承認含む）を取得する。
// GET /api/articles/mine
func (h *ArticleHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	articles, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		responses = append(responses, toArticleResponse(a))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(articleListResponse{Articles: responses})
}

// ListPending は承認待ち記事の一覧を取得する。
// GET /api/articles/pending
func (h *ArticleHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	articles, err := h.service.ListPending(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeArticleList(w, articles, 0)
}

// Approve は記事を承認する。
// POST /api/articles/{id}/approve
// 既に承認済みの記事への承認リクエストも200で成功する（冪等）。
func (h *ArticleHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	approved, err := h.service.Approve(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArticleResponseWithNames(approved))
}

// --- ヘルパー関数 ---

// parseLimit はlimitクエリパラメータを解析し、範囲外の値をデフォルトに丸める。
func parseLimit(raw string) int {
	if raw == "" {
		return defaultArticlesPerPage
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return defaultArticlesPerPage
	}
	if limit > maxArticlesPerPage {
		return maxArticlesPerPage
	}
	return limit
}

// writeArticleList は記事一覧をカーソル付きで書き込む。
// limitが0より大きく、件数がlimitに達した場合はnext_cursorを設定する。
func writeArticleList(w http.ResponseWriter, articles []model.ArticleWithNames, limit int) {
	responses := make([]articleResponse, 0, len(articles))
	for i := range articles {
		responses = append(responses, toArticleResponseWithNames(&articles[i]))
	}

	resp := articleListResponse{Articles: responses}
	if limit > 0 && len(articles) == limit {
		last := articles[len(articles)-1]
		if last.PublishedAt != nil {
			resp.NextCursor = last.PublishedAt.Format(time.RFC3339Nano)
			resp.HasMore = true
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toArticleResponse はmodel.ArticleからAPIレスポンスに変換する。
func toArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		ID:               a.ID,
		Title:            a.Title,
		Content:          a.Content,
		Summary:          a.Summary,
		FeaturedImageURL: a.FeaturedImageURL,
		AuthorID:         a.AuthorID,
		PublisherID:      a.PublisherID,
		IsApproved:       a.IsApproved,
		PublishedAt:      a.PublishedAt,
		CreatedAt:        a.CreatedAt,
	}
}

// toArticleResponseWithNames は表示名付き記事からAPIレスポンスに変換する。
func toArticleResponseWithNames(a *model.ArticleWithNames) articleResponse {
	resp := toArticleResponse(&a.Article)
	resp.AuthorName = a.AuthorName
	resp.PublisherName = a.PublisherName
	return resp
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// invalidRequestError はリクエストボディ解析失敗のエラーを生成する。
func invalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// missingParamError は必須クエリパラメータ欠落のエラーを生成する。
func missingParamError(param string) *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  param + "は必須です。",
		Category: "validation",
		Action:   param + "クエリパラメータを指定してください。",
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeNotSubscribed:
		return http.StatusForbidden
	case model.ErrCodeArticleNotFound, model.ErrCodePublisherNotFound,
		model.ErrCodeJournalistNotFound, model.ErrCodeNewsletterNotFound,
		model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateUsername, model.ErrCodeDuplicatePublisher:
		return http.StatusConflict
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidRole,
		model.ErrCodeAuthorNotJournalist, model.ErrCodeNotAffiliated,
		"INVALID_REQUEST":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
