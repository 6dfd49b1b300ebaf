package api

import (
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionHeader = "X-Session-ID"

// Handler contains HTTP handlers
type Handler struct {
	carts    *service.CartService
	vouchers *service.VoucherService
	checkout *service.CheckoutService
}

// NewHandler creates a new HTTP handler
func NewHandler(carts *service.CartService, vouchers *service.VoucherService, checkout *service.CheckoutService) *Handler {
	return &Handler{
		carts:    carts,
		vouchers: vouchers,
		checkout: checkout,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(sessionMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)

		v1.GET("/cart", h.listCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.DELETE("/cart/items/:id", h.removeCartItem)
		v1.POST("/cart/voucher", h.applyVoucher)

		v1.POST("/checkout", h.doCheckout)
		v1.GET("/payment/vnpay/return", h.vnpayReturn)
		v1.POST("/payment/paypal/capture", h.paypalCapture)

		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/customers/:id/orders", h.getOrderHistory)
		v1.PUT("/staff/orders/:id/status", h.updateOrderStatus)
		v1.GET("/staff/vouchers/:code/usages", h.getVoucherUsages)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.carts.Catalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) listCart(c *gin.Context) {
	lines, total, err := h.carts.List(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"lines": lines, "total": total}
	if staged, err := h.carts.StagedVoucher(c.Request.Context(), sessionID(c)); err == nil && staged != nil {
		resp["voucher_code"] = staged.Code
		resp["voucher_discount"] = staged.Discount
	}
	c.JSON(http.StatusOK, resp)
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	lines, err := h.carts.Add(c.Request.Context(), sessionID(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines, "total": models.CartTotal(lines)})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	lines, err := h.carts.Remove(c.Request.Context(), sessionID(c), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines, "total": models.CartTotal(lines)})
}

type applyVoucherRequest struct {
	VoucherCode string `json:"voucher_code" binding:"required"`
}

func (h *Handler) applyVoucher(c *gin.Context) {
	var req applyVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Voucher code is required"})
		return
	}

	result, err := h.vouchers.Apply(c.Request.Context(), sessionID(c), req.VoucherCode)
	if err != nil {
		if re, ok := models.AsRule(err); ok {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": re.Message()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"voucher_code":     result.Code,
		"discount_percent": result.DiscountPercent,
		"discount_amount":  result.Discount,
		"max_discount":     result.MaxDiscount,
		"final_amount":     result.FinalAmount,
	})
}

type checkoutRequest struct {
	CustomerID       string `json:"customer_id" binding:"required"`
	UseStoredProfile bool   `json:"use_stored_profile"`
	Name             string `json:"name"`
	Address          string `json:"address"`
	Phone            string `json:"phone"`
	Note             string `json:"note"`
	PaymentMethod    string `json:"payment_method" binding:"required"`
}

func (h *Handler) doCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.checkout.Checkout(c.Request.Context(), &service.CheckoutRequest{
		SessionID:        sessionID(c),
		CustomerID:       req.CustomerID,
		UseStoredProfile: req.UseStoredProfile,
		Profile: models.DeliveryProfile{
			Name:    req.Name,
			Address: req.Address,
			Phone:   req.Phone,
			Note:    req.Note,
		},
		PaymentMethod: req.PaymentMethod,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	switch {
	case result.RedirectURL != "":
		c.Redirect(http.StatusFound, result.RedirectURL)
	case result.IntentID != "":
		c.JSON(http.StatusOK, gin.H{"intent_id": result.IntentID})
	default:
		c.JSON(http.StatusCreated, gin.H{"order_id": result.OrderID})
	}
}

func (h *Handler) vnpayReturn(c *gin.Context) {
	orderID, err := h.checkout.HandleRedirectReturn(
		c.Request.Context(), models.PaymentMethodVNPay, c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": orderID})
}

type captureRequest struct {
	IntentID string `json:"intent_id" binding:"required"`
}

func (h *Handler) paypalCapture(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	orderID, err := h.checkout.CaptureWallet(
		c.Request.Context(), models.PaymentMethodPayPal, req.IntentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": orderID})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, lines, err := h.checkout.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "lines": lines})
}

// getOrderHistory handles listing a customer's orders
func (h *Handler) getOrderHistory(c *gin.Context) {
	orders, err := h.checkout.GetOrderHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type updateStatusRequest struct {
	Status int    `json:"status" binding:"min=0,max=3"`
	Note   string `json:"note"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.checkout.UpdateStatus(c.Request.Context(), orderID,
		models.OrderStatus(req.Status), req.Note); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": req.Status})
}

// getVoucherUsages handles listing the redemption audit trail for a voucher
func (h *Handler) getVoucherUsages(c *gin.Context) {
	usages, err := h.vouchers.Usages(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usages": usages})
}

// respondError maps the error taxonomy to HTTP responses: validation 400,
// business rule 422, decline 402, gateway fault 502, anything else 500.
func respondError(c *gin.Context, err error) {
	if ve, ok := models.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
		return
	}
	if re, ok := models.AsRule(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": re.Message(), "reason": string(re.Reason)})
		return
	}
	if ge, ok := models.AsGateway(err); ok {
		if ge.Declined {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error": "Payment was declined", "gateway": ge.Gateway, "code": ge.Code,
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable", "gateway": ge.Gateway})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again"})
}

// sessionMiddleware assigns a session id when the client has none and
// echoes it back so the client can carry it forward.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader(sessionHeader)
		if sid == "" {
			sid = uuid.New().String()
		}
		c.Set("session_id", sid)
		c.Header(sessionHeader, sid)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString("session_id")
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
