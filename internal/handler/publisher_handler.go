package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/publisher"
)

// PublisherServiceInterface は出版社ハンドラーが必要とするサービスインターフェース。
type PublisherServiceInterface interface {
	Create(ctx context.Context, actor *model.User, input publisher.CreateInput) (*model.Publisher, error)
	Get(ctx context.Context, id string) (*model.Publisher, error)
	List(ctx context.Context) ([]*model.Publisher, error)
	RefreshLogo(ctx context.Context, actor *model.User, publisherID string) error
}

// PublisherHandler は出版社管理のHTTPハンドラー。
type PublisherHandler struct {
	service PublisherServiceInterface
}

// NewPublisherHandler はPublisherHandlerを生成する。
func NewPublisherHandler(service PublisherServiceInterface) *PublisherHandler {
	return &PublisherHandler{service: service}
}

// createPublisherRequest は出版社登録リクエストのボディ。
type createPublisherRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// publisherResponse は出版社のAPIレスポンス。
type publisherResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Website     string    `json:"website,omitempty"`
	HasLogo     bool      `json:"has_logo"`
	CreatedAt   time.Time `json:"created_at"`
}

// List は出版社の一覧を取得する。
// GET /api/publishers
func (h *PublisherHandler) List(w http.ResponseWriter, r *http.Request) {
	publishers, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]publisherResponse, 0, len(publishers))
	for _, p := range publishers {
		responses = append(responses, toPublisherResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]publisherResponse{"publishers": responses})
}

// Create は出版社を登録する。編集者のみが実行できる。
// POST /api/publishers
func (h *PublisherHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createPublisherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), actor, publisher.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPublisherResponse(created))
}

// Get は出版社詳細を取得する。
// GET /api/publishers/{id}
func (h *PublisherHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPublisherResponse(p))
}

// Logo は出版社のロゴ画像を返す。ロゴ未取得の出版社は404。
// GET /api/publishers/{id}/logo
func (h *PublisherHandler) Logo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if len(p.LogoData) == 0 {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewPublisherNotFoundError(id))
		return
	}

	mime := p.LogoMime
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(p.LogoData)
}

// RefreshLogo は出版社サイトからロゴを再取得する。編集者のみが実行できる。
// POST /api/publishers/{id}/refresh_logo
func (h *PublisherHandler) RefreshLogo(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.RefreshLogo(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toPublisherResponse はmodel.PublisherからAPIレスポンスに変換する。
func toPublisherResponse(p *model.Publisher) publisherResponse {
	return publisherResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Website:     p.Website,
		HasLogo:     len(p.LogoData) > 0,
		CreatedAt:   p.CreatedAt,
	}
}
