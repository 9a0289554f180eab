package ses

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike-predict/internal/models"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func quoteValuation() *models.Valuation {
	return &models.Valuation{
		BrandName: "royal enfield", ModelName: "royal enfield classic", LocationName: "pune",
		ModelCode: 12, Year: 2019, Kilometers: 18000, Power: 350, Owner: models.OwnerSecond, Price: 125000,
	}
}

func TestSendValuationQuote(t *testing.T) {
	client := &fakeSES{}
	svc := NewWithClient(client, "quotes@example.com")

	res, err := svc.SendValuationQuote(context.Background(), " Rider <rider@example.com> ", quoteValuation())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", res.MessageID)

	in := client.input
	require.NotNil(t, in)
	assert.Equal(t, "quotes@example.com", aws.ToString(in.Source))
	assert.Equal(t, []string{"rider@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Your Royal Enfield Royal Enfield Classic valuation: ₹1,25,000", aws.ToString(in.Message.Subject.Data))
	assert.Contains(t, aws.ToString(in.Message.Body.Html.Data), "₹1,25,000")
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "Owner Type: Second Owner")
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "Based on current market trends")
}

func TestSendValuationQuote_InvalidRecipient(t *testing.T) {
	client := &fakeSES{}
	svc := NewWithClient(client, "quotes@example.com")

	_, err := svc.SendValuationQuote(context.Background(), "not an address", quoteValuation())
	assert.ErrorIs(t, err, ErrInvalidRecipient)
	assert.Nil(t, client.input)
}

func TestSendValuationQuote_SendFailure(t *testing.T) {
	svc := NewWithClient(&fakeSES{err: errors.New("throttled")}, "quotes@example.com")

	_, err := svc.SendValuationQuote(context.Background(), "rider@example.com", quoteValuation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestBuildQuoteParams_FallsBackToCode(t *testing.T) {
	params := BuildQuoteParams(&models.Valuation{ModelCode: 12, Price: 999})
	assert.Equal(t, "#12", params.Model)
	assert.Equal(t, "₹999", params.Price)
}
