package notify

import (
	"log/slog"

	gomail "gopkg.in/gomail.v2"
)

// EmailMessage は1通の通知メールを表す。
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// Mailer はメール送信のインターフェース。
type Mailer interface {
	// SendBatch は複数の通知メールを1つのSMTP接続でまとめて送信し、
	// 送信に成功した件数を返す。個々の宛先の失敗は残りの送信を止めない。
	SendBatch(messages []EmailMessage) (int, error)
}

// SMTPConfig はSMTP接続の設定。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// smtpMailer はgomailを使用したMailerの実装。
type smtpMailer struct {
	config SMTPConfig
}

// NewSMTPMailer はSMTP経由のMailerを生成する。
// ホストが未設定の場合は送信をスキップするnoopMailerを返す。
// ローカル開発環境ではSMTPサーバーなしで起動できる。
func NewSMTPMailer(config SMTPConfig) Mailer {
	if config.Host == "" {
		slog.Warn("SMTP host not configured, email notifications disabled")
		return &noopMailer{}
	}
	return &smtpMailer{config: config}
}

// SendBatch は1つのSMTP接続で全メッセージを送信する。
// 宛先ごとに送信し、失敗した宛先はログに残して続行する。
func (m *smtpMailer) SendBatch(messages []EmailMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	dialer := gomail.NewDialer(m.config.Host, m.config.Port, m.config.Username, m.config.Password)
	sender, err := dialer.Dial()
	if err != nil {
		return 0, err
	}
	defer sender.Close()

	sent := 0
	msg := gomail.NewMessage()
	for _, em := range messages {
		msg.Reset()
		msg.SetHeader("From", m.config.From)
		msg.SetHeader("To", em.To)
		msg.SetHeader("Subject", em.Subject)
		msg.SetBody("text/plain", em.Body)

		if err := gomail.Send(sender, msg); err != nil {
			slog.Error("failed to send notification email",
				slog.String("to", em.To),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

// noopMailer はSMTP未設定時に使用する送信スキップ実装。
type noopMailer struct{}

func (m *noopMailer) SendBatch(messages []EmailMessage) (int, error) {
	return 0, nil
}
