package client

import (
	"context"

	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
)

// ModelsClient calls the model lifecycle endpoints.
type ModelsClient struct {
	client *Client
}

type trainRequest struct {
	CorpusSize *int `json:"corpus_size,omitempty"`
}

type generationResponse struct {
	Status string                    `json:"status"`
	Data   *claim_dss.GenerationMeta `json:"data"`
}

// Train trains and activates a new generation. A corpusSize of zero uses the
// server's configured size.
func (mc *ModelsClient) Train(ctx context.Context, corpusSize int) (*claim_dss.GenerationMeta, error) {
	var req trainRequest
	if corpusSize > 0 {
		req.CorpusSize = &corpusSize
	}
	var resp generationResponse
	if err := mc.client.post(ctx, "/api/v1/models/train", req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Reset deletes the persisted generation and retrains.
func (mc *ModelsClient) Reset(ctx context.Context) (*claim_dss.GenerationMeta, error) {
	var resp generationResponse
	if err := mc.client.post(ctx, "/api/v1/models/reset", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Status reports the server's model state without triggering training.
func (mc *ModelsClient) Status(ctx context.Context) (*claim_dss.ModelStatus, error) {
	var st claim_dss.ModelStatus
	if err := mc.client.get(ctx, "/api/v1/models/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}
