package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

// EmailSender - канал доставки email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender - канал доставки SMS
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SMTPConfig - параметры SMTP сервера
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender отправляет письма через go-mail. STARTTLS включается, если сервер его поддерживает.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// SendEmail соблюдает дедлайн контекста на всем SMTP диалоге
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	msg, err := newAlertMessage(s.cfg.From, to, subject, body)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// newAlertMessage собирает text/plain письмо. Заголовки и тело кодирует go-mail.
func newAlertMessage(from, to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// SMSConfig - параметры SMS шлюза с Twilio-совместимым API
type SMSConfig struct {
	APIURL        string
	AccountSID    string
	AuthToken     string
	From          string
	RatePerSecond float64
}

// SMSClient отправляет SMS через HTTP API шлюза. Повторов нет.
type SMSClient struct {
	client  *resty.Client
	path    string
	from    string
	limiter *rate.Limiter
}

func NewSMSClient(cfg SMSConfig) *SMSClient {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &SMSClient{
		client:  client,
		path:    smsMessagesPath(cfg.AccountSID),
		from:    cfg.From,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func smsMessagesPath(accountSID string) string {
	return "/2010-04-01/Accounts/" + accountSID + "/Messages.json"
}

func (c *SMSClient) SendSMS(ctx context.Context, to, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit wait: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": c.from,
			"Body": body,
		}).
		Post(c.path)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway responded with status %d", resp.StatusCode())
	}
	return nil
}

// SetTimeout задает таймаут HTTP клиента для вызовов без дедлайна
func (c *SMSClient) SetTimeout(timeout time.Duration) *SMSClient {
	c.client.SetTimeout(timeout)
	return c
}
