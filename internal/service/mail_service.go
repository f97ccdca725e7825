package service

import (
	"academy_backend/internal/config"
	"academy_backend/pkg/logger"
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// Mailer 发送证书通知邮件
type Mailer interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// NopMailer 未启用邮件时使用
type NopMailer struct{}

func (NopMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	logger.Log.Debug("Mail disabled, skipping", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// SESMailer 通过 Amazon SES v2 发送
type SESMailer struct {
	client *sesv2.Client
	from   string
}

// NewMailer mail.enabled 为 false 时返回 NopMailer
func NewMailer(cfg *config.MailConfig) (Mailer, error) {
	if !cfg.Enabled || cfg.FromEmail == "" {
		logger.Log.Info("Mail service disabled")
		return NopMailer{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}

	logger.Log.Info("Mail service enabled",
		zap.String("from", cfg.FromEmail),
		zap.String("region", cfg.Region))

	return &SESMailer{client: sesv2.NewFromConfig(awsCfg), from: from}, nil
}

func (m *SESMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	body := &types.Body{
		Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
	}
	if htmlBody != "" {
		body.Html = &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")}
	}

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}

	logger.Log.Info("Email sent via SES", zap.String("to", to), zap.String("subject", subject))
	return nil
}

var certificateMailTmpl = template.Must(template.New("certificate_mail").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Congratulations, {{.UserName}}!</h2>
  <p>You have completed <strong>{{.TrackTitle}}</strong>.</p>
  <p>Certificate number: <strong>{{.CertificateNumber}}</strong><br>
     Completion date: {{.CompletionDate}}</p>
  <p><a href="{{.VerifyURL}}">Verify your certificate</a></p>
</body>
</html>`))

type certificateMail struct {
	UserName          string
	TrackTitle        string
	CertificateNumber string
	CompletionDate    string
	VerifyURL         string
}

func renderCertificateMail(m certificateMail) (subject, text, html string, err error) {
	subject = fmt.Sprintf("Your certificate for %s", m.TrackTitle)
	text = fmt.Sprintf("Congratulations, %s!\n\nYou have completed %s.\nCertificate number: %s\nCompletion date: %s\n\nVerify: %s\n",
		m.UserName, m.TrackTitle, m.CertificateNumber, m.CompletionDate, m.VerifyURL)

	var buf bytes.Buffer
	if err = certificateMailTmpl.Execute(&buf, m); err != nil {
		return "", "", "", err
	}
	return subject, text, buf.String(), nil
}
