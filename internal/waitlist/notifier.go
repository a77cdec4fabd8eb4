package waitlist

import (
	"context"
	"fmt"

	"raiserocket/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Notifier confirms a new waitlist entry to its owner.
type Notifier interface {
	Notify(ctx context.Context, entry *models.WaitlistEntry) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *models.WaitlistEntry) error { return nil }

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends the confirmation through Amazon SES.
type SESNotifier struct {
	client sesAPI
	sender string
}

func NewSESNotifier(ctx context.Context, region, sender string) (*SESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESNotifier{client: ses.NewFromConfig(cfg), sender: sender}, nil
}

func (n *SESNotifier) Notify(ctx context.Context, entry *models.WaitlistEntry) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{entry.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("You're on the RaiseRocket launch list"),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String("Thanks for signing up. We'll let you know as soon as " +
						"mission control opens for new commanders.\n\nThe RaiseRocket crew"),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}
	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", entry.Email, err)
	}
	return nil
}
