package httpserver

import (
	"errors"
	"net/http"

	"voiceshop/internal/domain"
	"voiceshop/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type createPaymentRequest struct {
	CartItems       []checkout.CartItem   `json:"cartItems"`
	CustomerInfo    checkout.CustomerInfo `json:"customerInfo"`
	ShippingAddress domain.Address        `json:"shippingAddress"`
	BillingAddress  *domain.Address       `json:"billingAddress"`
}

func createPaymentHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result, err := svc.CreatePayment(c.Request.Context(), checkout.CreatePaymentInput{
			CartItems:       req.CartItems,
			CustomerInfo:    req.CustomerInfo,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			Origin:          c.GetHeader("Origin"),
		})
		if err != nil {
			if errors.Is(err, checkout.ErrEmptyCart) || errors.Is(err, checkout.ErrMissingCustomerEmail) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type verifyPaymentRequest struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
}

func verifyPaymentHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result, err := svc.VerifyPayment(c.Request.Context(), req.SessionID, req.OrderID)
		if err != nil {
			if errors.Is(err, checkout.ErrMissingIDs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"order":          result.Order,
			"payment_status": result.PaymentStatus,
		})
	}
}
