// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層と通知ディスパッチャから利用する。
type MetricsCollector interface {
	RecordArticleApproved()
	RecordEmailsSent(count int)
	RecordEmailFailure()
	RecordSocialPostSent()
	RecordSocialPostFailure(reason string)
	RecordSocialPostSkipped()
	RecordNewsletterSent()
	RecordNotifyLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	articlesApproved prometheus.Counter
	emailsSent       prometheus.Counter
	emailFail        prometheus.Counter
	socialSent       prometheus.Counter
	socialFail       *prometheus.CounterVec
	socialSkipped    prometheus.Counter
	newslettersSent  prometheus.Counter
	notifyLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		articlesApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_articles_approved_total",
			Help: "承認された記事の合計数",
		}),
		emailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_notification_emails_sent_total",
			Help: "送信された通知メールの合計数",
		}),
		emailFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_notification_email_fail_total",
			Help: "通知メール送信失敗の合計数",
		}),
		socialSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_social_posts_sent_total",
			Help: "ソーシャルメディア投稿成功の合計数",
		}),
		socialFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_social_post_fail_total",
			Help: "ソーシャルメディア投稿失敗の理由別合計数",
		}, []string{"reason"}),
		socialSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_social_posts_skipped_total",
			Help: "設定不足によりスキップされたソーシャル投稿の合計数",
		}),
		newslettersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_newsletters_sent_total",
			Help: "送信されたニュースレターの合計数",
		}),
		notifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsdesk_notify_latency_seconds",
			Help:    "通知ファンアウト全体のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.articlesApproved,
		c.emailsSent,
		c.emailFail,
		c.socialSent,
		c.socialFail,
		c.socialSkipped,
		c.newslettersSent,
		c.notifyLatency,
	)

	return c
}

// RecordArticleApproved は記事承認を記録する。
func (c *Collector) RecordArticleApproved() {
	c.articlesApproved.Inc()
}

// RecordEmailsSent は送信した通知メール数を記録する。
func (c *Collector) RecordEmailsSent(count int) {
	c.emailsSent.Add(float64(count))
}

// RecordEmailFailure はメール送信失敗を記録する。
func (c *Collector) RecordEmailFailure() {
	c.emailFail.Inc()
}

// RecordSocialPostSent はソーシャル投稿成功を記録する。
func (c *Collector) RecordSocialPostSent() {
	c.socialSent.Inc()
}

// RecordSocialPostFailure はソーシャル投稿失敗を理由付きで記録する。
func (c *Collector) RecordSocialPostFailure(reason string) {
	c.socialFail.WithLabelValues(reason).Inc()
}

// RecordSocialPostSkipped は設定不足によるスキップを記録する。
func (c *Collector) RecordSocialPostSkipped() {
	c.socialSkipped.Inc()
}

// RecordNewsletterSent はニュースレター送信を記録する。
func (c *Collector) RecordNewsletterSent() {
	c.newslettersSent.Inc()
}

// RecordNotifyLatency は通知ファンアウトのレイテンシを記録する。
func (c *Collector) RecordNotifyLatency(duration time.Duration) {
	c.notifyLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
