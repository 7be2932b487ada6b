// Package command dispatches shell scripts to instances and reports their progress.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/rs/zerolog"
)

// ShellDocument is the SSM document used to run the backup script.
const ShellDocument = "AWS-RunShellScript"

// ErrInvocationNotFound is returned while the backend has not registered the
// invocation yet. Callers should keep polling.
var ErrInvocationNotFound = errors.New("command invocation not found")

// Executor runs scripts on remote instances.
type Executor interface {
	Dispatch(ctx context.Context, req models.CommandRequest) (string, error)
	Invocation(ctx context.Context, commandID, instanceID string) (*models.CommandInvocation, error)
}

// SSM implements Executor with AWS Systems Manager Run Command.
type SSM struct {
	ssm    ssmiface.SSMAPI
	logger zerolog.Logger
}

// NewSSM creates a new SSM executor from an AWS session.
func NewSSM(logger zerolog.Logger, sess client.ConfigProvider) *SSM {
	return NewSSMWithClient(logger, ssm.New(sess))
}

// NewSSMWithClient creates a new SSM executor with a custom client (for testing).
func NewSSMWithClient(logger zerolog.Logger, api ssmiface.SSMAPI) *SSM {
	return &SSM{
		ssm:    api,
		logger: logger,
	}
}

// Dispatch sends the script to the instance and returns the command id.
func (s *SSM) Dispatch(ctx context.Context, req models.CommandRequest) (string, error) {
	input := &ssm.SendCommandInput{
		InstanceIds:  []*string{aws.String(req.Instance.ID)},
		DocumentName: aws.String(ShellDocument),
		Parameters: map[string][]*string{
			"commands": {aws.String(req.Script)},
		},
	}
	if req.Comment != "" {
		input.Comment = aws.String(req.Comment)
	}
	if req.Timeout > 0 {
		input.TimeoutSeconds = aws.Int64(int64(req.Timeout.Seconds()))
	}

	out, err := s.ssm.SendCommandWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sending command to %s: %w", req.Instance.ID, err)
	}
	if out.Command == nil || aws.StringValue(out.Command.CommandId) == "" {
		return "", fmt.Errorf("sending command to %s: no command id returned", req.Instance.ID)
	}

	commandID := aws.StringValue(out.Command.CommandId)
	s.logger.Info().
		Str("instance_id", req.Instance.ID).
		Str("command_id", commandID).
		Msg("backup command sent")

	return commandID, nil
}

// Invocation returns the current state of a command on an instance.
func (s *SSM) Invocation(ctx context.Context, commandID, instanceID string) (*models.CommandInvocation, error) {
	out, err := s.ssm.GetCommandInvocationWithContext(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(instanceID),
	})
	if err != nil {
		var awsErr awserr.Error
		if errors.As(err, &awsErr) && awsErr.Code() == ssm.ErrCodeInvocationDoesNotExist {
			return nil, fmt.Errorf("%w: %s on %s", ErrInvocationNotFound, commandID, instanceID)
		}
		return nil, fmt.Errorf("getting command invocation %s: %w", commandID, err)
	}

	return &models.CommandInvocation{
		CommandID:  commandID,
		InstanceID: instanceID,
		Status:     aws.StringValue(out.Status),
		Stdout:     aws.StringValue(out.StandardOutputContent),
		Stderr:     aws.StringValue(out.StandardErrorContent),
	}, nil
}
