package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// ModelManager is the model lifecycle surface exposed over HTTP.
type ModelManager interface {
	TrainAll(ctx context.Context, corpusSize int) (*claim_dss.GenerationMeta, error)
	Reset(ctx context.Context) (*claim_dss.GenerationMeta, error)
	Status() claim_dss.ModelStatus
}

// TrainRequest is the optional body of POST /api/v1/models/train.
type TrainRequest struct {
	CorpusSize *int `json:"corpus_size,omitempty"`
}

// ModelHandler serves training, reset and status.
type ModelHandler struct {
	models ModelManager
	logger logging.Logger
}

func NewModelHandler(models ModelManager, log logging.Logger) *ModelHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ModelHandler{models: models, logger: log}
}

func (h *ModelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	m := rg.Group("/models")
	m.POST("/train", h.Train)
	m.POST("/reset", h.Reset)
	m.GET("/status", h.Status)
}

// Train handles POST /api/v1/models/train. An empty body trains with the
// configured corpus size.
func (h *ModelHandler) Train(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var req TrainRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			RespondError(c, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode request body"))
			return
		}
	}
	size := 0
	if req.CorpusSize != nil {
		size = *req.CorpusSize
		if size < claim_dss.MinCorpusSize || size > claim_dss.MaxCorpusSize {
			RespondError(c, errors.Newf(errors.ErrCodeInvalidCorpusRequest,
				"corpus_size must be between %d and %d", claim_dss.MinCorpusSize, claim_dss.MaxCorpusSize))
			return
		}
	}

	meta, err := h.models.TrainAll(c.Request.Context(), size)
	if err != nil {
		RespondError(c, err)
		return
	}
	h.logger.Info("models trained via API", logging.String("generation", meta.ID), logging.Int("corpus_size", meta.CorpusSize))
	c.JSON(http.StatusOK, StatusResponse{Status: "trained", Data: meta})
}

// Reset handles POST /api/v1/models/reset.
func (h *ModelHandler) Reset(c *gin.Context) {
	meta, err := h.models.Reset(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	h.logger.Info("models reset via API", logging.String("generation", meta.ID))
	c.JSON(http.StatusOK, StatusResponse{Status: "reset", Data: meta})
}

// Status handles GET /api/v1/models/status.
func (h *ModelHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.models.Status())
}
