package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueuedEmail is the message body consumed by the mail relay.
type QueuedEmail struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SQSSender publishes each email to a queue for an external relay.
type SQSSender struct {
	client   sqsAPI
	queueURL string
	from     string
}

// NewSQSSender loads AWS credentials from the default chain.
func NewSQSSender(ctx context.Context, queueURL, region, from string) (*SQSSender, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SQSSender{client: sqs.NewFromConfig(cfg), queueURL: queueURL, from: from}, nil
}

func (s *SQSSender) SendEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(QueuedEmail{
		From:    fmt.Sprintf("Mindful Assessment Platform <%s>", s.from),
		To:      to,
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		return fmt.Errorf("encode queued email: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String("email")},
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}
