// Package checkout orchestrates order creation against the database and the
// hosted-checkout payment provider, and verifies payment outcomes.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"voiceshop/internal/domain"
	"voiceshop/internal/payments"
	customerrepo "voiceshop/internal/repository/customer"
	orderrepo "voiceshop/internal/repository/order"
)

const (
	currency              = "USD"
	freeShippingThreshold = 50.0
	flatShippingFee       = 9.99
	taxRate               = 0.08
)

// allowedShippingCountries restricts hosted-checkout address collection.
var allowedShippingCountries = []string{"US", "CA", "GB", "AU"}

var (
	// ErrEmptyCart means the checkout request carried no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrMissingCustomerEmail means contact info lacked an email address.
	ErrMissingCustomerEmail = errors.New("customer email required")
	// ErrMissingIDs means a verification request lacked session or order id.
	ErrMissingIDs = errors.New("missing session_id or order_id")
)

type customersRepo interface {
	Upsert(ctx context.Context, in customerrepo.UpsertInput) (*domain.Customer, error)
}

type ordersRepo interface {
	Create(ctx context.Context, in orderrepo.CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	AttachCheckoutSession(ctx context.Context, orderID, sessionID string) error
	UpdatePaymentStatus(ctx context.Context, orderID string, pay domain.PaymentStatus, ful domain.FulfillmentStatus, paymentIntentID string) (*domain.Order, error)
	FulfillmentItems(ctx context.Context, orderID string) ([]domain.FulfillmentItem, error)
}

type paymentsClient interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, p payments.SessionParams) (*payments.Session, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*payments.Session, error)
}

// Service implements the two-phase checkout: create a pending order with a
// checkout session, then settle it when the verification handler reports the
// provider's outcome.
type Service struct {
	customers customersRepo
	orders    ordersRepo
	payments  paymentsClient
	logger    *log.Logger

	// defaultOrigin backs the redirect URLs when a request has no Origin
	// header (e.g. server-to-server calls).
	defaultOrigin string
}

// New builds a Service.
func New(customers customersRepo, orders ordersRepo, pay paymentsClient, defaultOrigin string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		customers:     customers,
		orders:        orders,
		payments:      pay,
		defaultOrigin: strings.TrimRight(defaultOrigin, "/"),
		logger:        logger,
	}
}

// CartItem is one browser-cart line at checkout.
type CartItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
}

// CustomerInfo is the contact block of a checkout request.
type CustomerInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Totals are the computed order amounts, rounded to cents.
type Totals struct {
	Subtotal float64
	Shipping float64
	Tax      float64
	Total    float64
}

// ComputeTotals derives order amounts from the cart: flat shipping below the
// free-shipping threshold and a flat tax rate on the subtotal.
func ComputeTotals(items []CartItem) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	subtotal = round2(subtotal)

	shipping := flatShippingFee
	if subtotal >= freeShippingThreshold {
		shipping = 0
	}
	tax := round2(subtotal * taxRate)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    round2(subtotal + shipping + tax),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreatePaymentInput is a full checkout request.
type CreatePaymentInput struct {
	CartItems       []CartItem
	CustomerInfo    CustomerInfo
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	// Origin of the storefront, used to build redirect URLs.
	Origin string
}

// CreatePaymentResult is returned to the browser for redirection.
type CreatePaymentResult struct {
	URL         string `json:"url"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// CreatePayment runs the checkout sequence: provider customer lookup, totals,
// customer upsert, order + items insert, hosted session creation, session id
// attach. There is no compensating rollback; a failure after the order insert
// leaves a pending order with no session, which is safe because payment has
// not been attempted yet.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	if len(in.CartItems) == 0 {
		return nil, ErrEmptyCart
	}
	if strings.TrimSpace(in.CustomerInfo.Email) == "" {
		return nil, ErrMissingCustomerEmail
	}

	providerCustomerID, err := s.payments.FindCustomerByEmail(ctx, in.CustomerInfo.Email)
	if err != nil {
		return nil, fmt.Errorf("look up provider customer: %w", err)
	}

	totals := ComputeTotals(in.CartItems)
	s.logger.Printf("checkout: email=%s items=%d subtotal=%.2f shipping=%.2f tax=%.2f total=%.2f",
		in.CustomerInfo.Email, len(in.CartItems), totals.Subtotal, totals.Shipping, totals.Tax, totals.Total)

	cust, err := s.customers.Upsert(ctx, customerrepo.UpsertInput{
		Email:             in.CustomerInfo.Email,
		FirstName:         in.CustomerInfo.FirstName,
		LastName:          in.CustomerInfo.LastName,
		Phone:             in.CustomerInfo.Phone,
		IsGuest:           true,
		PaymentCustomerID: providerCustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}

	items := make([]orderrepo.ItemInput, 0, len(in.CartItems))
	for _, item := range in.CartItems {
		var productID *string
		if item.ID != "" {
			id := item.ID
			productID = &id
		}
		items = append(items, orderrepo.ItemInput{
			ProductID:    productID,
			ProductName:  item.Name,
			ProductImage: item.Image,
			Quantity:     item.Quantity,
			PriceEach:    item.Price,
		})
	}

	order, err := s.orders.Create(ctx, orderrepo.CreateInput{
		CustomerID:      cust.ID,
		Subtotal:        totals.Subtotal,
		TaxAmount:       totals.Tax,
		ShippingAmount:  totals.Shipping,
		TotalAmount:     totals.Total,
		Currency:        currency,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		Items:           items,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	origin := strings.TrimRight(in.Origin, "/")
	if origin == "" {
		origin = s.defaultOrigin
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.SessionParams{
		CustomerID:       providerCustomerID,
		CustomerEmail:    in.CustomerInfo.Email,
		LineItems:        buildLineItems(in.CartItems, totals),
		SuccessURL:       fmt.Sprintf("%s/payment-success?session_id={CHECKOUT_SESSION_ID}&order_id=%s", origin, order.ID),
		CancelURL:        origin + "/cart?cancelled=true",
		AllowedCountries: allowedShippingCountries,
		Metadata: map[string]string{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	if err := s.orders.AttachCheckoutSession(ctx, order.ID, session.ID); err != nil {
		return nil, fmt.Errorf("attach checkout session: %w", err)
	}

	return &CreatePaymentResult{
		URL:         session.URL,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}, nil
}

// buildLineItems converts cart lines to minor-unit checkout lines, appending
// synthetic Shipping and Tax lines when non-zero.
func buildLineItems(items []CartItem, totals Totals) []payments.LineItem {
	out := make([]payments.LineItem, 0, len(items)+2)
	for _, item := range items {
		out = append(out, payments.LineItem{
			Name:       item.Name,
			Image:      item.Image,
			Currency:   currency,
			UnitAmount: toMinorUnits(item.Price),
			Quantity:   int64(item.Quantity),
		})
	}
	if totals.Shipping > 0 {
		out = append(out, payments.LineItem{
			Name:       "Shipping",
			Currency:   currency,
			UnitAmount: toMinorUnits(totals.Shipping),
			Quantity:   1,
		})
	}
	if totals.Tax > 0 {
		out = append(out, payments.LineItem{
			Name:       "Tax",
			Currency:   currency,
			UnitAmount: toMinorUnits(totals.Tax),
			Quantity:   1,
		})
	}
	return out
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// VerifyResult is the verification handler's response payload.
type VerifyResult struct {
	Order         *domain.Order        `json:"order"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

// VerifyPayment re-fetches the session from the provider, applies the order
// state machine and persists the outcome. When the order turns paid, the
// items are fetched with supplier metadata in preparation for fulfillment
// dispatch; the dispatch itself is an unimplemented extension point.
func (s *Service) VerifyPayment(ctx context.Context, sessionID, orderID string) (*VerifyResult, error) {
	if sessionID == "" || orderID == "" {
		return nil, ErrMissingIDs
	}

	session, err := s.payments.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("retrieve session: %w", err)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	pay, ful := domain.ApplyProviderStatus(order.PaymentStatus, order.FulfillmentStatus, session.PaymentStatus)
	updated, err := s.orders.UpdatePaymentStatus(ctx, orderID, pay, ful, session.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if pay == domain.PaymentPaid && order.PaymentStatus != domain.PaymentPaid {
		items, err := s.orders.FulfillmentItems(ctx, orderID)
		if err != nil {
			s.logger.Printf("checkout: load fulfillment items order=%s err=%v", orderID, err)
		} else {
			// TODO: dispatch items to supplier APIs grouped by supplier slug.
			s.logger.Printf("checkout: order %s paid, %d items ready for fulfillment", updated.OrderNumber, len(items))
		}
	}

	return &VerifyResult{Order: updated, PaymentStatus: updated.PaymentStatus}, nil
}
