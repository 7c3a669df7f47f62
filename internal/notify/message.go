package notify

import (
	"fmt"

	"github.com/hitoshi/newsdesk/internal/model"
)

const (
	// socialPostLimit はソーシャル投稿の最大文字数。
	socialPostLimit = 280
	// socialURLReserve は投稿テキストに要約を含める際にURL分として確保する文字数。
	socialURLReserve = 30
	// summaryFallbackLen は要約未設定時に本文から切り出す文字数。
	summaryFallbackLen = 200
)

// independentLabel は出版社に属さないコンテンツの表示名。
const independentLabel = "Independent"

// publisherLabel は出版社名を返す。独立記事の場合はIndependentにフォールバックする。
func publisherLabel(publisherName string) string {
	if publisherName == "" {
		return independentLabel
	}
	return publisherName
}

// summaryOrExcerpt は要約を返す。未設定の場合は本文の先頭200文字に"..."を付けて返す。
func summaryOrExcerpt(summary, content string) string {
	if summary != "" {
		return summary
	}
	runes := []rune(content)
	if len(runes) > summaryFallbackLen {
		runes = runes[:summaryFallbackLen]
	}
	return string(runes) + "..."
}

// ArticleURL は記事の公開URLを組み立てる。
func ArticleURL(baseURL, articleID string) string {
	return fmt.Sprintf("%s/articles/%s/", baseURL, articleID)
}

// BuildArticleEmail は記事承認通知メールの件名と本文を組み立てる。
func BuildArticleEmail(article *model.ArticleWithNames, articleURL string) (subject, body string) {
	subject = fmt.Sprintf("New Article Published: %s", article.Title)
	body = fmt.Sprintf(`Hello,

A new article has been published that you might be interested in:

Title: %s
Author: %s
Publisher: %s

Summary:
%s

Read the full article at: %s

Best regards,
The Newsdesk Team
`,
		article.Title,
		article.AuthorName,
		publisherLabel(article.PublisherName),
		summaryOrExcerpt(article.Summary, article.Content),
		articleURL,
	)
	return subject, body
}

// BuildNewsletterEmail はニュースレター配信メールの件名と本文を組み立てる。
func BuildNewsletterEmail(newsletter *model.Newsletter, authorName, publisherName string) (subject, body string) {
	subject = fmt.Sprintf("Newsletter: %s", newsletter.Title)
	body = fmt.Sprintf(`Hello,

A new newsletter has arrived from %s (%s):

%s

Best regards,
The Newsdesk Team
`,
		authorName,
		publisherLabel(publisherName),
		newsletter.Content,
	)
	return subject, body
}

// BuildSocialPost はソーシャル投稿テキストを組み立てる。
// 280文字の上限内に収まるよう、要約はURL分の30文字を差し引いた
// 残り文字数で切り詰める。組み立て後になお上限を超える場合は
// 277文字に切り詰めて"..."を付ける。文字数はルーン単位で数える。
func BuildSocialPost(title, summary, articleURL string) string {
	text := fmt.Sprintf("📰 New Article: %s\n\n", title)

	if summary != "" {
		remaining := socialPostLimit - len([]rune(text)) - socialURLReserve
		summaryRunes := []rune(summary)
		if len(summaryRunes) > remaining {
			if remaining < 0 {
				remaining = 0
			}
			summary = string(summaryRunes[:remaining]) + "..."
		}
		text += summary + "\n\n"
	}

	text += "Read more: " + articleURL

	if runes := []rune(text); len(runes) > socialPostLimit {
		text = string(runes[:socialPostLimit-3]) + "..."
	}

	return text
}
