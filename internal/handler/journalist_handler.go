package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdesk/internal/model"
)

// journalistProfileArticles はプロフィールに載せる直近の承認済み記事数。
const journalistProfileArticles = 20

// JournalistServiceInterface は記者一覧ハンドラーが必要とするサービスインターフェース。
type JournalistServiceInterface interface {
	ListJournalists(ctx context.Context) ([]*model.User, error)
	GetJournalist(ctx context.Context, journalistID string) (*model.User, error)
}

// JournalistHandler は記者の発見（購読先探し）のHTTPハンドラー。
type JournalistHandler struct {
	service  JournalistServiceInterface
	articles ArticleServiceInterface
}

// NewJournalistHandler はJournalistHandlerを生成する。
func NewJournalistHandler(service JournalistServiceInterface, articles ArticleServiceInterface) *JournalistHandler {
	return &JournalistHandler{service: service, articles: articles}
}

// journalistProfileResponse は記者プロフィールのレスポンス。
// 購読判断の材料として直近の承認済み記事を含む。
type journalistProfileResponse struct {
	userResponse
	RecentArticles []articleResponse `json:"recent_articles"`
}

// List は記者の一覧を取得する。
// GET /api/journalists
func (h *JournalistHandler) List(w http.ResponseWriter, r *http.Request) {
	journalists, err := h.service.ListJournalists(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(journalists))
	for _, j := range journalists {
		responses = append(responses, toUserResponse(j))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]userResponse{"journalists": responses})
}

// Get は記者のプロフィールを直近の承認済み記事付きで取得する。
// GET /api/journalists/{id}
func (h *JournalistHandler) Get(w http.ResponseWriter, r *http.Request) {
	journalistID := chi.URLParam(r, "id")

	journalist, err := h.service.GetJournalist(r.Context(), journalistID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	articles, err := h.articles.ListRecentByJournalist(r.Context(), journalistID, journalistProfileArticles)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := journalistProfileResponse{
		userResponse:   toUserResponse(journalist),
		RecentArticles: make([]articleResponse, 0, len(articles)),
	}
	for i := range articles {
		resp.RecentArticles = append(resp.RecentArticles, toArticleResponseWithNames(&articles[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
