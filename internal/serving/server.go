// Package serving hosts one trained classifier per budget behind a small
// HTTP API and provides the client the webhook gateway predicts through.
package serving

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/svanherk/bunqynab/internal/mlops"
	"github.com/svanherk/bunqynab/pkg/bunq"
)

// Server serves category predictions for a single budget from the model's
// production version. A pending reload flag is honored before the next
// prediction, so a freshly promoted model takes over without a restart.
type Server struct {
	budgetID string
	registry *mlops.Registry
	flags    *mlops.Flags
	payments bunq.PaymentService
	logger   zerolog.Logger

	mu      sync.RWMutex
	bundle  *mlops.Bundle
	version *mlops.ModelVersion
}

// NewServer creates a model server for the budget. Call Load before serving.
func NewServer(budgetID string, registry *mlops.Registry, flags *mlops.Flags, payments bunq.PaymentService, logger zerolog.Logger) *Server {
	return &Server{
		budgetID: budgetID,
		registry: registry,
		flags:    flags,
		payments: payments,
		logger:   logger.With().Str("budget", budgetID).Logger(),
	}
}

// Load pulls the budget's production model from the registry.
func (s *Server) Load() error {
	bundle, version, err := s.registry.Production(mlops.ModelName(s.budgetID))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.bundle = bundle
	s.version = version
	s.mu.Unlock()

	s.logger.Info().Int("version", version.Version).Str("description", version.Description).Msg("loaded production model")
	return nil
}

// Predict categorizes a payment. A payload carrying only identifiers is
// completed by fetching the full payment first.
func (s *Server) Predict(ctx context.Context, payment *bunq.Payment) (string, error) {
	s.maybeReload()

	if incomplete(payment) {
		full, err := s.payments.Get(ctx, payment.MonetaryAccountID, payment.ID)
		if err != nil {
			return "", errors.Wrapf(err, "failed to fetch payment %d", payment.ID)
		}
		payment = full
	}

	s.mu.RLock()
	bundle := s.bundle
	s.mu.RUnlock()
	if bundle == nil {
		return "", errors.New("serving: no model loaded")
	}

	row, err := bundle.Extractor.TransformOne(payment)
	if err != nil {
		return "", err
	}
	preds, err := bundle.Estimator.Predict([][]float64{row})
	if err != nil {
		return "", err
	}
	category, ok := bundle.Encoder.Decode(preds[0])
	if !ok {
		return "", errors.Errorf("serving: prediction %d maps to no known category", preds[0])
	}
	return category, nil
}

// Handler returns the HTTP API: POST /predict answering the category as
// plain text, and GET /health reporting the loaded model version.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/predict", s.handlePredict)
	router.GET("/health", s.handleHealth)
	return router
}

func (s *Server) handlePredict(c *gin.Context) {
	var payment bunq.Payment
	if err := c.ShouldBindJSON(&payment); err != nil {
		c.String(http.StatusBadRequest, "invalid payment payload")
		return
	}

	category, err := s.Predict(c.Request.Context(), &payment)
	if err != nil {
		s.logger.Error().Err(err).Int64("payment", payment.ID).Msg("prediction failed")
		c.String(http.StatusInternalServerError, "prediction failed")
		return
	}

	s.logger.Info().Int64("payment", payment.ID).Str("category", category).Msg("predicted category")
	c.String(http.StatusOK, category)
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.RLock()
	version := s.version
	s.mu.RUnlock()

	if version == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no model loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"budget":  s.budgetID,
		"version": version.Version,
	})
}

func (s *Server) maybeReload() {
	if !s.flags.ReloadRequested(s.budgetID) {
		return
	}
	if err := s.Load(); err != nil {
		s.logger.Error().Err(err).Msg("model reload failed, keeping current model")
		return
	}
	if err := s.flags.ClearReload(s.budgetID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear reload flag")
	}
}

// incomplete reports whether the payload carries identifiers only, as bunq
// notification callbacks sometimes do.
func incomplete(payment *bunq.Payment) bool {
	return payment.Description == "" && payment.Created.IsZero()
}
