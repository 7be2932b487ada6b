// Package handler adapts the backup runner to the Lambda invocation contract.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/services/runner"
	"github.com/rs/zerolog"
)

// CompletedMessage is the message returned after every run.
const CompletedMessage = "Backup process completed"

// Response is returned to the Lambda runtime.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type responseBody struct {
	Message string                `json:"message"`
	Results []models.BackupResult `json:"results"`
}

// Handler runs one backup pass per scheduled event.
type Handler struct {
	runner runner.Service
	cfg    models.BackupConfig
	logger zerolog.Logger
}

// New creates a handler for the given runner and configuration.
func New(logger zerolog.Logger, r runner.Service, cfg models.BackupConfig) *Handler {
	return &Handler{
		runner: r,
		cfg:    cfg,
		logger: logger,
	}
}

// Handle runs the backup and reports per-instance results. Instance, pruning
// and notification failures are part of the results, never a handler error.
func (h *Handler) Handle(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	h.logger.Info().
		Str("event_id", event.ID).
		Str("source", event.Source).
		Str("detail_type", event.DetailType).
		Msg("received scheduled event")

	status := h.runner.Run(ctx, h.cfg)

	body, err := EncodeBody(status.Results)
	if err != nil {
		return Response{}, err
	}

	return Response{
		StatusCode: http.StatusOK,
		Body:       body,
	}, nil
}

// EncodeBody renders the response body for a list of results.
func EncodeBody(results []models.BackupResult) (string, error) {
	if results == nil {
		results = []models.BackupResult{}
	}

	data, err := json.Marshal(responseBody{
		Message: CompletedMessage,
		Results: results,
	})
	if err != nil {
		return "", fmt.Errorf("encoding response: %w", err)
	}

	return string(data), nil
}
