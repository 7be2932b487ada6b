package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/fgeck/openvpn-backup/internal/handler"
	"github.com/fgeck/openvpn-backup/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve scheduled invocations inside the AWS Lambda runtime",
	Long: `Start the AWS Lambda runtime loop. Each scheduled event runs one backup
pass and returns {"statusCode": 200, "body": ...} with the per-instance
results. Selected automatically when AWS_LAMBDA_RUNTIME_API is set.`,
	RunE: serveLambda,
}

func serveLambda(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}

	runnerSvc, err := runner.New(log.Logger, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to set up backup runner")
		return err
	}

	h := handler.New(log.Logger, runnerSvc, *cfg)
	lambda.Start(h.Handle)

	return nil
}
