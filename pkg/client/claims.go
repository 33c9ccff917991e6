package client

import (
	"context"

	"github.com/turtacn/ForestRights-DSS/internal/application/analysis"
	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
)

// ClaimsClient calls the claim analysis endpoints.
type ClaimsClient struct {
	client *Client
}

type documentClaimRequest struct {
	Claim    claim.Input `json:"claim"`
	Document struct {
		Entities []claim.DocumentEntity `json:"entities"`
	} `json:"document"`
}

// Analyze scores a claim. Fields left nil take the server defaults.
func (cc *ClaimsClient) Analyze(ctx context.Context, in claim.Input) (*analysis.AnalysisResult, error) {
	var res analysis.AnalysisResult
	if err := cc.client.post(ctx, "/api/v1/dss/analyze", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AnalyzeWithDocument scores a claim completed by OCR entities of the claim
// form.
func (cc *ClaimsClient) AnalyzeWithDocument(ctx context.Context, in claim.Input, entities []claim.DocumentEntity) (*analysis.AnalysisResult, error) {
	req := documentClaimRequest{Claim: in}
	req.Document.Entities = entities
	if req.Document.Entities == nil {
		req.Document.Entities = []claim.DocumentEntity{}
	}
	var res analysis.AnalysisResult
	if err := cc.client.post(ctx, "/api/v1/analyze-claim", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
