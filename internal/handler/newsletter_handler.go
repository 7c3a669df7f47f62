package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/newsletter"
)

// NewsletterServiceInterface はニュースレターハンドラーが必要とするサービスインターフェース。
type NewsletterServiceInterface interface {
	Create(ctx context.Context, actor *model.User, input newsletter.Input) (*model.Newsletter, error)
	Get(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error)
	ListMine(ctx context.Context, actor *model.User) ([]*model.Newsletter, error)
	Update(ctx context.Context, actor *model.User, id string, input newsletter.Input) (*model.Newsletter, error)
	Delete(ctx context.Context, actor *model.User, id string) error
	Send(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error)
}

// NewsletterHandler はニュースレター管理のHTTPハンドラー。
type NewsletterHandler struct {
	service NewsletterServiceInterface
}

// NewNewsletterHandler はNewsletterHandlerを生成する。
func NewNewsletterHandler(service NewsletterServiceInterface) *NewsletterHandler {
	return &NewsletterHandler{service: service}
}

// newsletterRequest はニュースレター作成・更新リクエストのボディ。
type newsletterRequest struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	PublisherID *string `json:"publisher_id"`
}

// newsletterResponse はニュースレターのAPIレスポンス。
type newsletterResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	AuthorID    string     `json:"author_id"`
	PublisherID *string    `json:"publisher_id"`
	IsSent      bool       `json:"is_sent"`
	SentAt      *time.Time `json:"sent_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListMine は記者自身のニュースレター一覧を取得する。
// GET /api/newsletters
func (h *NewsletterHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	newsletters, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]newsletterResponse, 0, len(newsletters))
	for _, n := range newsletters {
		responses = append(responses, toNewsletterResponse(n))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]newsletterResponse{"newsletters": responses})
}

// Create はニュースレターを作成する。
// POST /api/newsletters
func (h *NewsletterHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req newsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), actor, newsletter.Input{
		Title:       req.Title,
		Content:     req.Content,
		PublisherID: req.PublisherID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toNewsletterResponse(created))
}

// Get はニュースレター詳細を取得する。
// GET /api/newsletters/{id}
func (h *NewsletterHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	n, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toNewsletterResponse(n))
}

// Update はニュースレターを更新する。
// PUT /api/newsletters/{id}
func (h *NewsletterHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req newsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), newsletter.Input{
		Title:       req.Title,
		Content:     req.Content,
		PublisherID: req.PublisherID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toNewsletterResponse(updated))
}

// Delete はニュースレターを削除する。
// DELETE /api/newsletters/{id}
func (h *NewsletterHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Send はニュースレターを購読者へ配信する。
// POST /api/newsletters/{id}/send
// 既に送信済みのニュースレターへの送信リクエストも200で成功する（冪等）。
func (h *NewsletterHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	sent, err := h.service.Send(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toNewsletterResponse(sent))
}

// toNewsletterResponse はmodel.NewsletterからAPIレスポンスに変換する。
func toNewsletterResponse(n *model.Newsletter) newsletterResponse {
	return newsletterResponse{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		AuthorID:    n.AuthorID,
		PublisherID: n.PublisherID,
		IsSent:      n.IsSent,
		SentAt:      n.SentAt,
		CreatedAt:   n.CreatedAt,
	}
}
