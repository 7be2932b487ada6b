package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSSM struct {
	ssmiface.SSMAPI
	input *ssm.PutParameterInput
	err   error
}

func (m *mockSSM) PutParameterWithContext(_ aws.Context, input *ssm.PutParameterInput, _ ...request.Option) (*ssm.PutParameterOutput, error) {
	m.input = input
	return &ssm.PutParameterOutput{}, m.err
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestParameterName(t *testing.T) {
	assert.Equal(t, "/prod-vpn/openvpn/last_backup_status", ParameterName("prod-vpn"))
}

func TestSave(t *testing.T) {
	api := &mockSSM{}
	svc := NewWithClient(testLogger(), api)
	st := models.RunStatus{
		RunID:     "run-1",
		Timestamp: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		Results: []models.BackupResult{
			models.SuccessResult("i-1", "openvpn_backup_i-1_20240203_040506.tar.gz", "20240203_040506"),
			models.SkippedResult("i-2", "Instance not running (state: stopped)"),
		},
	}

	err := svc.Save(context.Background(), "prod", st)

	require.NoError(t, err)
	assert.Equal(t, "/prod/openvpn/last_backup_status", aws.StringValue(api.input.Name))
	assert.Equal(t, ssm.ParameterTypeString, aws.StringValue(api.input.Type))
	assert.True(t, aws.BoolValue(api.input.Overwrite))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.StringValue(api.input.Value)), &decoded))
	assert.Equal(t, "2024-02-03T04:05:06Z", decoded["timestamp"])
	results := decoded["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, "success", first["status"])
	assert.NotContains(t, first, "reason")
}

func TestSave_Error(t *testing.T) {
	svc := NewWithClient(testLogger(), &mockSSM{err: errors.New("ParameterLimitExceeded")})

	err := svc.Save(context.Background(), "prod", models.RunStatus{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ParameterLimitExceeded")
}
