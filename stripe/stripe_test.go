package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/apperr"
	"storefront/models"
)

func testOrder() *models.Order {
	return &models.Order{
		ID:       primitive.NewObjectID(),
		Shipping: models.ShippingInfo{Email: "ann@example.com"},
		OrderItems: []models.LineItem{
			{Title: "Mug", Qty: 2, Price: "10.00", Image: "https://cdn.example.com/m.png"},
			{Title: "Tea", Qty: 1, Price: "5.555"},
		},
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" || r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = r.ParseForm()
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_123","url":"https://checkout.example.com/cs_123"}`))
	}))
	defer srv.Close()

	order := testOrder()
	s, err := NewClient("sk_test", srv.URL).CreateCheckoutSession(context.Background(), order, "https://shop.example.com/")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID != "cs_123" || s.URL == "" {
		t.Fatalf("unexpected session %+v", s)
	}

	want := map[string]string{
		"line_items[0][price_data][unit_amount]": "1000",
		"line_items[0][quantity]":                "2",
		"line_items[1][price_data][unit_amount]": "556",
		"line_items[0][price_data][currency]":    "usd",
		"customer_email":                         "ann@example.com",
		"mode":                                   "payment",
		"payment_method_types[0]":                "card",
		"client_reference_id":                    order.ID.Hex(),
		"success_url":                            "https://shop.example.com/?success=true",
		"cancel_url":                             "https://shop.example.com/?canceled=true",
	}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("%s = %q, want %q", k, form[k], v)
		}
	}
	if form["line_items[0][price_data][product_data][images][0]"] != "https://cdn.example.com/m.png" {
		t.Error("item image not sent")
	}
	if _, ok := form["line_items[1][price_data][product_data][images][0]"]; ok {
		t.Error("item without image should not send images")
	}
}

func TestProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key provided"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("sk_bad", srv.URL).CreateCheckoutSession(context.Background(), testOrder(), "http://x")
	if !apperr.Is(err, apperr.Upstream) || apperr.Message(err) != "Invalid API Key provided" {
		t.Fatalf("expected upstream error with provider message, got %v", err)
	}
}

func TestProviderErrorWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient("sk_test", srv.URL).CreateCheckoutSession(context.Background(), testOrder(), "http://x")
	if !apperr.Is(err, apperr.Upstream) || apperr.Message(err) != "Payment provider returned 502" {
		t.Fatalf("expected upstream error with status, got %v", err)
	}
}

func TestDisabledWithoutKey(t *testing.T) {
	_, err := NewClient("", "").CreateCheckoutSession(context.Background(), testOrder(), "http://x")
	if !apperr.Is(err, apperr.Unavailable) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}
