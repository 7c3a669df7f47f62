package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/middleware"
)

// HealthChecker はヘルスチェックエンドポイントが依存するDB疎通確認のインターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 運用エンドポイント
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 記事
	ArticleService ArticleServiceInterface

	// 出版社
	PublisherService PublisherServiceInterface

	// 購読・所属
	SubscriptionService SubscriptionServiceInterface
	JournalistService   JournalistServiceInterface

	// ニュースレター
	NewsletterService NewsletterServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → [Session → RateLimit(General) → CSRF]
//
// 認証ルート（/auth/*）と運用ルート（/health, /metrics, /api/csrf-token）は
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	articleHandler := NewArticleHandler(deps.ArticleService)
	publisherHandler := NewPublisherHandler(deps.PublisherService)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService)
	journalistHandler := NewJournalistHandler(deps.JournalistService, deps.ArticleService)
	newsletterHandler := NewNewsletterHandler(deps.NewsletterService)

	// --- 認証不要のルート ---

	// 運用エンドポイント
	r.Get("/health", newHealthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 記事
		r.Route("/api/articles", func(r chi.Router) {
			r.Get("/", articleHandler.ListFeed)

			// POST /api/articles - 記事投稿（投稿専用レート制限を追加）
			r.With(deps.RateLimiter.ArticleCreateMiddleware()).Post("/", articleHandler.Create)

			r.Get("/subscriptions", subHandler.ListSubscriptions)
			r.Get("/by_publisher", articleHandler.ListByPublisher)
			r.Get("/by_journalist", articleHandler.ListByJournalist)
			r.Get("/mine", articleHandler.ListMine)
			r.Get("/pending", articleHandler.ListPending)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", articleHandler.Get)
				r.Put("/", articleHandler.Update)
				r.Delete("/", articleHandler.Delete)
				r.Post("/approve", articleHandler.Approve)
			})
		})

		// 出版社
		r.Route("/api/publishers", func(r chi.Router) {
			r.Get("/", publisherHandler.List)
			r.Post("/", publisherHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", publisherHandler.Get)
				r.Get("/logo", publisherHandler.Logo)
				r.Post("/refresh_logo", publisherHandler.RefreshLogo)
				r.Put("/subscribe", subHandler.SubscribePublisher)
				r.Delete("/subscribe", subHandler.UnsubscribePublisher)
				r.Put("/affiliate", subHandler.Affiliate)
				r.Delete("/affiliate", subHandler.Unaffiliate)
			})
		})

		// 記者
		r.Route("/api/journalists", func(r chi.Router) {
			r.Get("/", journalistHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", journalistHandler.Get)
				r.Put("/subscribe", subHandler.SubscribeJournalist)
				r.Delete("/subscribe", subHandler.UnsubscribeJournalist)
			})
		})

		// ニュースレター
		r.Route("/api/newsletters", func(r chi.Router) {
			r.Get("/", newsletterHandler.ListMine)
			r.Post("/", newsletterHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", newsletterHandler.Get)
				r.Put("/", newsletterHandler.Update)
				r.Delete("/", newsletterHandler.Delete)
				r.Post("/send", newsletterHandler.Send)
			})
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}
