package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"

	"lingofocus/internal/logging"
)

var ErrEmailDisabled = errors.New("service: email delivery not configured")

// sesAPI is the part of the SES client the service uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends backup snapshots via Amazon SES
type EmailService struct {
	client    sesAPI
	fromEmail string
	enabled   bool
	log       zerolog.Logger
}

// NewEmailService creates an email service; an empty fromEmail disables it
func NewEmailService(ctx context.Context, awsRegion, fromEmail string, logger zerolog.Logger) (*EmailService, error) {
	logger = logging.Component(logger, "email")
	if fromEmail == "" {
		logger.Info().Msg("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{log: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info().Str("from", fromEmail).Str("region", awsRegion).Msg("email service enabled")
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, logger), nil
}

func newEmailService(client sesAPI, fromEmail string, logger zerolog.Logger) *EmailService {
	return &EmailService{client: client, fromEmail: fromEmail, enabled: true, log: logger}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

// SendBackup mails a snapshot as a JSON attachment
func (s *EmailService) SendBackup(ctx context.Context, toEmail, filename string, snapshot []byte) error {
	if !s.IsEnabled() {
		return ErrEmailDisabled
	}
	if toEmail == "" {
		return fmt.Errorf("service: no recipient for backup email")
	}

	subject := "LingoFocus backup " + filename
	text := fmt.Sprintf("Your LingoFocus study data exported at %s is attached as %s.\n\nRestore it from Settings > Import, or with:\n  backup import -input %s\n",
		time.Now().Format(time.RFC1123), filename, filename)

	raw, err := buildRawMessage(s.fromEmail, toEmail, subject, text, filename, snapshot)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	result, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination:      &types.Destination{ToAddresses: []string{toEmail}},
		Content:          &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	ev := s.log.Info().Str("to", toEmail).Str("file", filename)
	if result != nil && result.MessageId != nil {
		ev = ev.Str("message_id", *result.MessageId)
	}
	ev.Msg("backup emailed")
	return nil
}

// buildRawMessage assembles a multipart/mixed MIME message with one attachment
func buildRawMessage(from, to, subject, text, filename string, attachment []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=UTF-8"},
		"Content-Transfer-Encoding": {"7bit"},
	})
	if err != nil {
		return nil, err
	}
	part.Write([]byte(text))

	part, err = mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("application/json; name=%q", filename)},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		part.Write([]byte(encoded[:76] + "\r\n"))
		encoded = encoded[76:]
	}
	part.Write([]byte(encoded + "\r\n"))

	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
