// Package instance queries the lifecycle state of EC2 instances.
package instance

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/rs/zerolog"
)

// ErrInstanceNotFound is returned when the query returns no instance.
var ErrInstanceNotFound = errors.New("instance not found")

// Service defines the interface for instance state queries.
type Service interface {
	Describe(ctx context.Context, instanceID string) (*models.Instance, error)
}

// Impl implements the Service interface on top of EC2.
type Impl struct {
	ec2    ec2iface.EC2API
	logger zerolog.Logger
}

// New creates a new instance service from an AWS session.
func New(logger zerolog.Logger, sess client.ConfigProvider) *Impl {
	return NewWithClient(logger, ec2.New(sess))
}

// NewWithClient creates a new instance service with a custom EC2 client (for testing).
func NewWithClient(logger zerolog.Logger, api ec2iface.EC2API) *Impl {
	return &Impl{
		ec2:    api,
		logger: logger,
	}
}

// Describe returns the state and addresses of a single instance.
func (s *Impl) Describe(ctx context.Context, instanceID string) (*models.Instance, error) {
	out, err := s.ec2.DescribeInstancesWithContext(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []*string{aws.String(instanceID)},
	})
	if err != nil {
		return nil, fmt.Errorf("describing instance %s: %w", instanceID, err)
	}

	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			if inst == nil {
				continue
			}
			result := &models.Instance{
				ID:        aws.StringValue(inst.InstanceId),
				PublicIP:  aws.StringValue(inst.PublicIpAddress),
				PrivateIP: aws.StringValue(inst.PrivateIpAddress),
			}
			if result.ID == "" {
				result.ID = instanceID
			}
			if inst.State != nil {
				result.State = aws.StringValue(inst.State.Name)
			}

			s.logger.Debug().
				Str("instance_id", result.ID).
				Str("state", result.State).
				Msg("instance described")

			return result, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
}
