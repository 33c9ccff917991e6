package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"github.com/turtacn/ForestRights-DSS/internal/application/analysis"
	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// DocumentClaimRequest is the body of POST /api/v1/analyze-claim.
type DocumentClaimRequest struct {
	Claim    claim.Input `json:"claim"`
	Document struct {
		Entities []claim.DocumentEntity `json:"entities"`
	} `json:"document"`
}

// AnalysisHandler serves the claim analysis endpoints.
type AnalysisHandler struct {
	analyzer analysis.Analyzer
	logger   logging.Logger
}

func NewAnalysisHandler(analyzer analysis.Analyzer, log logging.Logger) *AnalysisHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AnalysisHandler{analyzer: analyzer, logger: log}
}

// RegisterRoutes mounts the analysis endpoints on rg.
func (h *AnalysisHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/dss/analyze", h.Analyze)
	rg.POST("/analyze-claim", h.AnalyzeWithDocument)
}

// Analyze handles POST /api/v1/dss/analyze. The body is a claim object.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var in claim.Input
	if !h.decode(c, claimSchema, &in) {
		return
	}
	h.run(c, in, nil)
}

// AnalyzeWithDocument handles POST /api/v1/analyze-claim. Document entities
// fill the claim fields the caller left out.
func (h *AnalysisHandler) AnalyzeWithDocument(c *gin.Context) {
	var req DocumentClaimRequest
	if !h.decode(c, documentClaimSchema, &req) {
		return
	}
	var signals *claim.DocumentSignals
	if len(req.Document.Entities) > 0 {
		signals = claim.ExtractSignals(req.Document.Entities)
	}
	h.run(c, req.Claim, signals)
}

func (h *AnalysisHandler) decode(c *gin.Context, schema *gojsonschema.Schema, dst any) bool {
	body, ok := readBody(c)
	if !ok {
		return false
	}
	if violations := validateBody(schema, body); len(violations) > 0 {
		h.logger.Debug("rejected analysis request", logging.Strings("violations", violations))
		respondValidation(c, "request does not match the claim schema", violations)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		RespondError(c, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode request body"))
		return false
	}
	return true
}

func (h *AnalysisHandler) run(c *gin.Context, in claim.Input, signals *claim.DocumentSignals) {
	res, err := h.analyzer.Analyze(c.Request.Context(), in, signals)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
