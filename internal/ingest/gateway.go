// Package ingest receives bunq payment callbacks and books the categorized
// transactions into the matching budget.
package ingest

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

// FallbackCategory is booked when no usable prediction is available, so the
// transaction still lands in the budget for manual categorization.
const FallbackCategory = "Inflow: Ready to Assign"

// processTimeout bounds the asynchronous handling of one callback.
const processTimeout = 2 * time.Minute

// Predictor returns the category name for a payment.
type Predictor interface {
	Predict(ctx context.Context, payment *bunq.Payment) (string, error)
}

// PredictorResolver finds the predictor serving a budget's model.
type PredictorResolver interface {
	Resolve(budgetID string) (Predictor, error)
}

// Gateway handles bunq notification callbacks: acknowledge immediately,
// categorize and book in the background.
type Gateway struct {
	accounts     ynab.AccountService
	categories   ynab.CategoryService
	transactions ynab.TransactionService
	predictors   PredictorResolver
	currency     string
	logger       zerolog.Logger

	wg sync.WaitGroup
}

// NewGateway creates a callback gateway.
func NewGateway(
	accounts ynab.AccountService,
	categories ynab.CategoryService,
	transactions ynab.TransactionService,
	predictors PredictorResolver,
	currency string,
	logger zerolog.Logger,
) *Gateway {
	return &Gateway{
		accounts:     accounts,
		categories:   categories,
		transactions: transactions,
		predictors:   predictors,
		currency:     currency,
		logger:       logger,
	}
}

// callbackEnvelope is the bunq notification wrapper around the mutated
// object.
type callbackEnvelope struct {
	NotificationURL struct {
		Category string                     `json:"category"`
		Object   map[string]json.RawMessage `json:"object"`
	} `json:"NotificationUrl"`
}

// Handler returns the HTTP API: POST /receive-transaction for bunq
// notifications and GET /health for probes.
func (g *Gateway) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/receive-transaction", g.handleCallback)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

// handleCallback acknowledges every callback with 200 before any processing.
// bunq retries non-200 responses aggressively and eventually drops the
// filter, so the response must never wait on downstream calls.
func (g *Gateway) handleCallback(c *gin.Context) {
	var envelope callbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		g.logger.Warn().Err(err).Msg("ignoring malformed callback")
		c.Status(http.StatusOK)
		return
	}

	raw, ok := envelope.NotificationURL.Object["Payment"]
	if !ok {
		g.logger.Debug().Str("category", envelope.NotificationURL.Category).Msg("ignoring callback without payment object")
		c.Status(http.StatusOK)
		return
	}

	var payment bunq.Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		g.logger.Warn().Err(err).Msg("ignoring callback with malformed payment")
		c.Status(http.StatusOK)
		return
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		if err := g.Process(ctx, &payment); err != nil {
			g.logger.Error().Err(err).Int64("payment", payment.ID).Msg("failed to process payment callback")
			sentry.CaptureException(err)
		}
	}()
	c.Status(http.StatusOK)
}

// Wait blocks until all in-flight callbacks are processed.
func (g *Gateway) Wait() {
	g.wg.Wait()
}

// Process books one payment into the budget owning the payment's account.
// Payments on accounts linked to no budget are skipped.
func (g *Gateway) Process(ctx context.Context, payment *bunq.Payment) error {
	logger := g.logger.With().Int64("payment", payment.ID).Logger()

	account, err := g.accounts.FindByIBAN(ctx, payment.Alias.Value)
	if errors.Is(err, ynab.ErrAccountNotFound) {
		logger.Debug().Str("iban", payment.Alias.Value).Msg("payment account is linked to no budget, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	category, categoryID := g.categorize(ctx, account.BudgetID, payment, logger)

	memo := ""
	if payment.Amount.Currency != g.currency {
		memo = "original amount: " + payment.Amount.Value + " " + payment.Amount.Currency
	}

	tx := &ynab.SaveTransaction{
		AccountID:  account.ID,
		Date:       payment.Date(),
		Amount:     milliunits(payment.Amount),
		PayeeName:  payment.CounterpartyAlias.Name,
		Memo:       memo,
		CategoryID: categoryID,
	}

	err = retry.Do(
		func() error {
			_, err := g.transactions.Create(ctx, account.BudgetID, tx)
			return err
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create transaction for payment %d", payment.ID)
	}

	logger.Info().
		Str("budget", account.BudgetID).
		Str("category", category).
		Msg("booked categorized transaction")
	return nil
}

// categorize predicts the payment's category and resolves it to a category
// id. Any failure, an unknown category, or the split placeholder falls back
// to the inflow category.
func (g *Gateway) categorize(ctx context.Context, budgetID string, payment *bunq.Payment, logger zerolog.Logger) (string, string) {
	name, err := g.predict(ctx, budgetID, payment)
	if err != nil {
		logger.Warn().Err(err).Msg("prediction unavailable, falling back")
		name = FallbackCategory
	}
	if name == ynab.SplitCategoryName {
		logger.Warn().Msg("model predicted the split placeholder, falling back")
		name = FallbackCategory
	}

	category, err := g.categories.FindByName(ctx, budgetID, name)
	if err != nil && name != FallbackCategory {
		logger.Warn().Err(err).Str("category", name).Msg("predicted category unknown to budget, falling back")
		name = FallbackCategory
		category, err = g.categories.FindByName(ctx, budgetID, name)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("fallback category missing, booking uncategorized")
		return name, ""
	}
	return name, category.ID
}

func (g *Gateway) predict(ctx context.Context, budgetID string, payment *bunq.Payment) (string, error) {
	predictor, err := g.predictors.Resolve(budgetID)
	if err != nil {
		return "", err
	}
	return predictor.Predict(ctx, payment)
}

// milliunits converts a decimal amount to budget milliunits.
func milliunits(amount bunq.Amount) int64 {
	return int64(math.Round(amount.Float() * 1000))
}
