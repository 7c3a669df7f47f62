package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/subscription"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	SubscribePublisher(ctx context.Context, actor *model.User, publisherID string) error
	UnsubscribePublisher(ctx context.Context, actor *model.User, publisherID string) error
	SubscribeJournalist(ctx context.Context, actor *model.User, journalistID string) error
	UnsubscribeJournalist(ctx context.Context, actor *model.User, journalistID string) error
	ListSubscriptions(ctx context.Context, actor *model.User) (*subscription.Subscriptions, error)
	Affiliate(ctx context.Context, actor *model.User, publisherID string) error
	Unaffiliate(ctx context.Context, actor *model.User, publisherID string) error
}

// SubscriptionHandler は購読・所属管理のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// subscriptionsResponse は購読一覧のレスポンス。
type subscriptionsResponse struct {
	SubscribedPublishers  []publisherResponse `json:"subscribed_publishers"`
	SubscribedJournalists []userResponse      `json:"subscribed_journalists"`
}

// ListSubscriptions は読者自身の購読一覧を取得する。
// GET /api/articles/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	subs, err := h.service.ListSubscriptions(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := subscriptionsResponse{
		SubscribedPublishers:  make([]publisherResponse, 0, len(subs.Publishers)),
		SubscribedJournalists: make([]userResponse, 0, len(subs.Journalists)),
	}
	for _, p := range subs.Publishers {
		resp.SubscribedPublishers = append(resp.SubscribedPublishers, toPublisherResponse(p))
	}
	for _, j := range subs.Journalists {
		resp.SubscribedJournalists = append(resp.SubscribedJournalists, toUserResponse(j))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SubscribePublisher は出版社を購読する。
// PUT /api/publishers/{id}/subscribe
func (h *SubscriptionHandler) SubscribePublisher(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.SubscribePublisher)
}

// UnsubscribePublisher は出版社の購読を解除する。
// DELETE /api/publishers/{id}/subscribe
func (h *SubscriptionHandler) UnsubscribePublisher(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.UnsubscribePublisher)
}

// SubscribeJournalist は記者を購読する。
// PUT /api/journalists/{id}/subscribe
func (h *SubscriptionHandler) SubscribeJournalist(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.SubscribeJournalist)
}

// UnsubscribeJournalist は記者の購読を解除する。
// DELETE /api/journalists/{id}/subscribe
func (h *SubscriptionHandler) UnsubscribeJournalist(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.UnsubscribeJournalist)
}

// Affiliate は出版社に所属する。
// PUT /api/publishers/{id}/affiliate
func (h *SubscriptionHandler) Affiliate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Affiliate)
}

// Unaffiliate は出版社の所属を解除する。
// DELETE /api/publishers/{id}/affiliate
func (h *SubscriptionHandler) Unaffiliate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Unaffiliate)
}

// mutate は購読・所属の冪等な状態変更を共通処理する。
// 成功時は204 No Contentを返す。
func (h *SubscriptionHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, *model.User, string) error) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := op(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
