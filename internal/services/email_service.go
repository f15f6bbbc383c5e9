package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/curalink/curalink/internal/models"
	pkglogger "github.com/curalink/curalink/pkg/logger"
)

// EmailSender delivers notification emails
type EmailSender interface {
	SendNotificationEmail(ctx context.Context, to string, n *models.Notification) error
}

// SESClient is the subset of the SES API used here
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   SESClient
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, baseURL, logger), nil
}

func NewEmailServiceWithClient(client SESClient, fromAddress, baseURL string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient:   client,
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// SendNotificationEmail mirrors an in-app notification to the user's inbox
func (s *AWSSESEmailService) SendNotificationEmail(ctx context.Context, to string, n *models.Notification) error {
	link := s.baseURL
	if n.Link != nil {
		link = s.baseURL + *n.Link
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <h2>%s</h2>
    <p>%s</p>
    <p><a href="%s">Open CuraLink</a></p>
    <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
</body>
</html>
`, html.EscapeString(n.Title), html.EscapeString(n.Content), html.EscapeString(link))

	textBody := fmt.Sprintf(`%s

%s

Open CuraLink: %s

This is an automated message. Please do not reply to this email.
`, n.Title, n.Content, link)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(n.Title),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send notification email via SES",
			slog.String("email", pkglogger.SanitizedEmail(to)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("notification email sent",
		slog.String("email", pkglogger.SanitizedEmail(to)),
		slog.String("type", n.Type),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
