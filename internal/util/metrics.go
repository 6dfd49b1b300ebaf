package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders materialized",
	}, []string{"payment_method"})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	OrderMaterializeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_materialize_latency_seconds",
		Help:    "Latency of the atomic order transaction",
		Buckets: prometheus.DefBuckets,
	})

	VouchersRedeemedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vouchers_redeemed_total",
		Help: "Total number of successful voucher redemptions",
	})

	VoucherRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voucher_rejections_total",
		Help: "Total number of voucher validation rejections",
	}, []string{"reason"})

	PaymentAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment attempts",
	}, []string{"gateway"})

	PaymentDeclinedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_declined_total",
		Help: "Total number of payments declined by a gateway",
	}, []string{"gateway"})

	PaymentErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_errors_total",
		Help: "Total number of gateway transport or system errors",
	}, []string{"gateway"})

	GatewayRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_latency_seconds",
		Help:    "Latency of outbound payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "operation"})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_notifications_sent_total",
		Help: "Total number of order confirmation notifications sent",
	})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_notifications_failed_total",
		Help: "Total number of order confirmation notifications that failed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
