package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/utils"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/services"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/views"
	"go.uber.org/zap"
)

// maxWebhookBodyBytes caps unauthenticated webhook bodies; Stripe events stay well below it.
const maxWebhookBodyBytes = 64 << 10

type PaymentHandler struct {
	logger   *zap.Logger
	checkout services.CheckoutService
	webhook  services.WebhookService
	orders   services.OrderService
}

func NewPaymentHandler(logger *zap.Logger, checkout services.CheckoutService, webhook services.WebhookService, orders services.OrderService) *PaymentHandler {
	return &PaymentHandler{logger: logger, checkout: checkout, webhook: webhook, orders: orders}
}

// RegisterRoutes registers payment routes on the provided group. checkoutGuards run before session creation only.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, checkoutGuards ...gin.HandlerFunc) {
	r.POST("/create-checkout-session", append(checkoutGuards, h.CreateCheckoutSession)...)
	r.POST("/webhook", h.Webhook)
	r.GET("/orders/:sessionId", h.GetOrder)
	r.GET("/config", h.GetConfig)
}

func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		h.abort(c, "", err)
		return
	}

	var req views.CheckoutRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		h.abort(c, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid request body", err))
		return
	}

	resp, err := h.checkout.CreateCheckoutSession(c.Request.Context(), traceID, req)
	if err != nil {
		h.abort(c, traceID, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Webhook needs the raw body; the signature covers the raw payload.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		h.abort(c, "", err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := c.GetRawData()
	if err != nil {
		h.abort(c, traceID, pkg.NewAppError(pkg.ErrMalformedPayloadCode, "", err))
		return
	}

	err = h.webhook.HandleEvent(c.Request.Context(), traceID, payload, c.GetHeader(pkg.HeaderStripeSignature))
	if err != nil {
		h.abort(c, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.WebhookAck{Status: "success"})
}

func (h *PaymentHandler) GetOrder(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		h.abort(c, "", err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), traceID, c.Param("sessionId"))
	if err != nil {
		h.abort(c, traceID, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *PaymentHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.checkout.PublicConfig())
}

func (h *PaymentHandler) abort(c *gin.Context, traceID string, err error) {
	resp := pkg.ToErrorResponse(h.logger, traceID, err)
	c.AbortWithStatusJSON(resp.Status, resp)
}
