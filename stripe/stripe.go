package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"storefront/apperr"
	"storefront/models"
	"storefront/orders"
)

const DefaultAPIBase = "https://api.stripe.com"

// Session is the part of a Checkout Session the storefront hands back to clients.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Client struct {
	secretKey string
	sessions  *session.Client
}

// NewClient talks to the Stripe API at base, which tests point at a local server.
func NewClient(secretKey, base string) *Client {
	if base == "" {
		base = DefaultAPIBase
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		URL:               stripeapi.String(strings.TrimRight(base, "/")),
		HTTPClient:        &http.Client{Timeout: 15 * time.Second},
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     slogLogger{},
	})
	return &Client{
		secretKey: secretKey,
		sessions:  &session.Client{B: backend, Key: secretKey},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.secretKey != ""
}

// CreateCheckoutSession opens a hosted payment page for order. The customer
// returns to redirect with ?success=true or ?canceled=true.
func (c *Client) CreateCheckoutSession(ctx context.Context, order *models.Order, redirect string) (*Session, error) {
	if !c.Enabled() {
		return nil, apperr.New(apperr.Unavailable, "Payments are not configured")
	}
	params, err := checkoutParams(order, strings.TrimRight(redirect, "/"))
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, providerError(err)
	}
	if s.ID == "" {
		return nil, apperr.New(apperr.Upstream, "Unexpected payment provider response")
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func checkoutParams(order *models.Order, redirect string) (*stripeapi.CheckoutSessionParams, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		SuccessURL:         stripeapi.String(redirect + "/?success=true"),
		CancelURL:          stripeapi.String(redirect + "/?canceled=true"),
		ClientReferenceID:  stripeapi.String(order.ID.Hex()),
	}
	if order.Shipping.Email != "" {
		params.CustomerEmail = stripeapi.String(order.Shipping.Email)
	}

	for _, it := range order.OrderItems {
		cents, err := orders.UnitAmountCents(it.Price)
		if err != nil {
			return nil, err
		}
		product := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripeapi.String(it.Title),
		}
		if it.Image != "" {
			product.Images = stripeapi.StringSlice([]string{it.Image})
		}
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(int64(it.Qty)),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(string(stripeapi.CurrencyUSD)),
				UnitAmount:  stripeapi.Int64(cents),
				ProductData: product,
			},
		})
	}
	return params, nil
}

func providerError(err error) error {
	var se *stripeapi.Error
	if errors.As(err, &se) {
		if se.Msg != "" {
			return apperr.Wrap(apperr.Upstream, se.Msg, err)
		}
		return apperr.Wrap(apperr.Upstream, fmt.Sprintf("Payment provider returned %d", se.HTTPStatusCode), err)
	}
	return apperr.Wrap(apperr.Upstream, "Payment provider unreachable", err)
}

// slogLogger routes the SDK's request logging into slog.
type slogLogger struct{}

func (slogLogger) Debugf(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (slogLogger) Infof(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (slogLogger) Warnf(format string, v ...interface{}) {
	slog.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (slogLogger) Errorf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
