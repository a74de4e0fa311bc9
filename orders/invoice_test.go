package orders

import (
	"bytes"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/models"
)

func TestInvoiceEncodesAccentedText(t *testing.T) {
	order := &models.Order{
		ID:   primitive.NewObjectID(),
		User: primitive.NewObjectID(),
		Shipping: models.ShippingInfo{
			Name:       "Zoë Brontë",
			Email:      "zoe@example.com",
			Street:     "1 Rue de la Paix",
			City:       "Montréal",
			State:      "QC",
			PostalCode: "H2X 1Y4",
			Country:    "Canada",
		},
		OrderItems: []models.LineItem{{Title: "Café crème", Qty: 1, Price: "4.50", Image: "/c.jpg", Product: primitive.NewObjectID()}},
		CreatedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	out, err := renderInvoice(order, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Caf\xe9 cr\xe8me", "Montr\xe9al", "Zo\xeb Bront\xeb"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("expected cp1252 text %q in invoice", want)
		}
	}
	if bytes.Contains(out, []byte("Caf\xc3\xa9")) {
		t.Error("raw UTF-8 bytes leaked into the page")
	}
}
