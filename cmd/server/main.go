// The server command exposes the connector layer over HTTP for manual
// testing and demos: create a payment, query it, refund it, and inspect a
// retrospective of gateway calls. Routing, persistence and the production
// state machine live in the orchestrator, not here.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/yourorg/payment-connectors/internal/config"
	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/connector/globepay"
	"github.com/yourorg/payment-connectors/internal/domain"
	"github.com/yourorg/payment-connectors/internal/metrics"
	"github.com/yourorg/payment-connectors/internal/processor"
	"github.com/yourorg/payment-connectors/internal/reporting"
)

type server struct {
	proc    *processor.Processor
	auth    domain.AuthConfig
	callLog *reporting.CallLog
	logger  *zap.Logger
}

type createPaymentRequest struct {
	PaymentID   string `json:"payment_id"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
	Description string `json:"description"`
	Wallet      string `json:"wallet" binding:"required"`
	Connector   string `json:"connector"`
}

type createRefundRequest struct {
	RefundID  string `json:"refund_id"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Connector string `json:"connector"`
}

func connectorOrDefault(name string) string {
	if name == "" {
		return "globepay"
	}
	return name
}

func (s *server) createPayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.PaymentID == "" {
		req.PaymentID = uuid.NewString()
	}

	attempt := domain.PaymentAttempt{
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Currency:  domain.Currency(req.Currency),
		Method: domain.PaymentMethodData{
			Type:   domain.PaymentMethodWallet,
			Wallet: domain.WalletKind(req.Wallet),
		},
		Auth: s.auth,
	}
	if req.Description != "" {
		attempt.Description = &req.Description
	}

	result, err := s.proc.Authorize(c.Request.Context(), connectorOrDefault(req.Connector), attempt)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_id": req.PaymentID, "result": result})
}

func (s *server) syncPayment(c *gin.Context) {
	attempt := domain.SyncAttempt{PaymentID: c.Param("paymentID"), Auth: s.auth}
	result, err := s.proc.Sync(c.Request.Context(), connectorOrDefault(c.Query("connector")), attempt)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_id": attempt.PaymentID, "result": result})
}

func (s *server) createRefund(c *gin.Context) {
	var req createRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.RefundID == "" {
		req.RefundID = uuid.NewString()
	}

	attempt := domain.RefundAttempt{
		PaymentID: c.Param("paymentID"),
		RefundID:  req.RefundID,
		Amount:    req.Amount,
		Auth:      s.auth,
	}
	result, err := s.proc.Refund(c.Request.Context(), connectorOrDefault(req.Connector), attempt)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refund_id": req.RefundID, "result": result})
}

func (s *server) syncRefund(c *gin.Context) {
	attempt := domain.RefundAttempt{
		PaymentID: c.Param("paymentID"),
		RefundID:  c.Param("refundID"),
		Auth:      s.auth,
	}
	result, err := s.proc.RefundSync(c.Request.Context(), connectorOrDefault(c.Query("connector")), attempt)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refund_id": attempt.RefundID, "result": result})
}

func (s *server) callReport(c *gin.Context) {
	c.JSON(http.StatusOK, reporting.BuildReport(s.callLog.Snapshot()))
}

// renderError maps the connector error taxonomy onto HTTP statuses.
// Business failures never reach here; they are normal results.
func (s *server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, connector.ErrUnsupportedPaymentMethod),
		errors.Is(err, connector.ErrMissingRequiredField):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, processor.ErrConnectorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, connector.ErrInvalidAuthConfig):
		s.logger.Error("connector credentials misconfigured", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "connector credentials misconfigured"})
	case errors.Is(err, connector.ErrResponseHandlingFailed):
		s.logger.Error("gateway response unusable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not process gateway response"})
	default:
		s.logger.Error("gateway call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway call failed"})
	}
}

func setupRouter(s *server) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("payment-connectors"))

	router.POST("/payments", s.createPayment)
	router.GET("/payments/:paymentID", s.syncPayment)
	router.POST("/payments/:paymentID/refunds", s.createRefund)
	router.GET("/payments/:paymentID/refunds/:refundID", s.syncRefund)
	router.GET("/reports/calls", s.callReport)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func setupTracing(logger *zap.Logger) func() {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		logger.Fatal("creating trace exporter", zap.Error(err))
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("trace provider shutdown", zap.Error(err))
		}
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	shutdownTracing := setupTracing(logger)
	defer shutdownTracing()

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	callLog := reporting.NewCallLog(cfg.CallLogLimit)

	gp, err := globepay.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		globepay.WithBaseURL(cfg.GatewayBaseURL),
		globepay.WithLogger(logger.Named("globepay")),
		globepay.WithMetrics(recorder),
		globepay.WithCallLog(callLog),
	)
	if err != nil {
		logger.Fatal("creating globepay client", zap.Error(err))
	}

	proc := processor.New(map[string]connector.Connector{gp.Name(): gp})
	srv := &server{proc: proc, auth: cfg.GatewayAuth, callLog: callLog, logger: logger}

	logger.Info("starting server", zap.String("addr", cfg.ListenAddr))
	if err := setupRouter(srv).Run(cfg.ListenAddr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
