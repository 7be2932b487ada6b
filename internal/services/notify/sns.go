package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/fgeck/openvpn-backup/internal/models"
)

// SNS publishes notifications to an SNS topic.
type SNS struct {
	sns      snsiface.SNSAPI
	topicARN string
}

// NewSNS creates a new SNS publisher from an AWS session.
func NewSNS(sess client.ConfigProvider, topicARN string) *SNS {
	return NewSNSWithClient(sns.New(sess), topicARN)
}

// NewSNSWithClient creates a new SNS publisher with a custom client (for testing).
func NewSNSWithClient(api snsiface.SNSAPI, topicARN string) *SNS {
	return &SNS{sns: api, topicARN: topicARN}
}

// Name implements Publisher.
func (p *SNS) Name() string {
	return "sns"
}

// Publish implements Publisher.
func (p *SNS) Publish(ctx context.Context, n models.Notification) error {
	_, err := p.sns.PublishWithContext(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(truncateRunes(n.Subject, maxSubjectLength)),
		Message:  aws.String(n.Body),
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topicARN, err)
	}
	return nil
}
