// Package ses sends valuation quote emails via AWS SES
package ses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appConfig "bike-predict/internal/config"
	"bike-predict/internal/models"
	"bike-predict/internal/utils"
)

// ErrInvalidRecipient is returned for an unparsable recipient address.
var ErrInvalidRecipient = errors.New("invalid recipient email address")

// EmailAPI is the subset of the SES client used here.
type EmailAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Service handles SES email operations
type Service struct {
	client    EmailAPI
	fromEmail string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// QuoteParams contains data for a valuation quote email
type QuoteParams struct {
	Brand      string
	Model      string
	Location   string
	Year       int
	Kilometers int
	Power      int
	Owner      string
	Price      string
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}

// NewService creates a new SES service
func NewService(ctx context.Context, appCfg *appConfig.Config) (*Service, error) {
	if appCfg.SESSenderEmail == "" {
		return nil, fmt.Errorf("SES_SENDER_EMAIL is not set")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(appCfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(ses.NewFromConfig(cfg), appCfg.SESSenderEmail), nil
}

// NewWithClient creates a service around an existing client.
func NewWithClient(client EmailAPI, fromEmail string) *Service {
	return &Service{client: client, fromEmail: fromEmail}
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	utils.GetLogger().Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// SendValuationQuote emails a summary of a valuation to the given address
func (s *Service) SendValuationQuote(ctx context.Context, to string, v *models.Valuation) (*SendEmailResult, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	params := BuildQuoteParams(v)

	htmlBody, err := renderQuoteHTML(params)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	return s.SendEmail(ctx, EmailParams{
		To:       addr.Address,
		Subject:  fmt.Sprintf("Your %s %s valuation: %s", params.Brand, params.Model, params.Price),
		HTMLBody: htmlBody,
		TextBody: renderQuoteText(params),
	})
}

// BuildQuoteParams formats a valuation for display
func BuildQuoteParams(v *models.Valuation) QuoteParams {
	return QuoteParams{
		Brand:      displayName(v.BrandName, v.BrandCode),
		Model:      displayName(v.ModelName, v.ModelCode),
		Location:   displayName(v.LocationName, v.LocationCode),
		Year:       v.Year,
		Kilometers: v.Kilometers,
		Power:      v.Power,
		Owner:      string(v.Owner),
		Price:      utils.FormatINR(v.Price),
	}
}

func displayName(name string, code int) string {
	if name == "" {
		return fmt.Sprintf("#%d", code)
	}
	return utils.TitleCase(utils.Sanitize(name))
}

var quoteTemplate = template.Must(template.New("valuation_quote").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1f2937; color: white; padding: 24px; border-radius: 10px 10px 0 0; text-align: center; }
        .content { background: #f9f9f9; padding: 24px; border-radius: 0 0 10px 10px; }
        .price { font-size: 32px; font-weight: bold; color: #059669; text-align: center; margin: 12px 0; }
        .note { text-align: center; color: #666; font-size: 13px; }
        td { padding: 4px 12px 4px 0; }
        .label { color: #999; }
        .footer { text-align: center; margin-top: 24px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Estimated Value</h1>
        <p>{{.Brand}} {{.Model}}</p>
    </div>
    <div class="content">
        <div class="price">{{.Price}}</div>
        <p class="note">Based on current market trends</p>
        <table>
            <tr><td class="label">Location</td><td>{{.Location}}</td></tr>
            <tr><td class="label">Year</td><td>{{.Year}}</td></tr>
            <tr><td class="label">Kilometers Driven</td><td>{{.Kilometers}}</td></tr>
            <tr><td class="label">Power (CC)</td><td>{{.Power}}</td></tr>
            <tr><td class="label">Owner Type</td><td>{{.Owner}}</td></tr>
        </table>
    </div>
    <div class="footer">
        <p>This email was sent by Bike Predict</p>
    </div>
</body>
</html>`))

func renderQuoteHTML(params QuoteParams) (string, error) {
	var buf bytes.Buffer
	if err := quoteTemplate.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderQuoteText(params QuoteParams) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Estimated value of your %s %s: %s\n", params.Brand, params.Model, params.Price)
	buf.WriteString("Based on current market trends\n\n")
	fmt.Fprintf(&buf, "Location: %s\n", params.Location)
	fmt.Fprintf(&buf, "Year: %d\n", params.Year)
	fmt.Fprintf(&buf, "Kilometers Driven: %d\n", params.Kilometers)
	fmt.Fprintf(&buf, "Power (CC): %d\n", params.Power)
	fmt.Fprintf(&buf, "Owner Type: %s\n\n", params.Owner)
	buf.WriteString("Bike Predict\n")

	return buf.String()
}
