package models

import (
	"bytes"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PriceText is a decimal price kept as text. JSON input may be a string or a
// number; both are stored as the literal text.
type PriceText string

func (p *PriceText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PriceText(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = PriceText(n.String())
	return nil
}

type LineItem struct {
	Title   string             `json:"title" bson:"title"`
	Qty     int                `json:"qty" bson:"qty"`
	Image   string             `json:"image" bson:"image"`
	Price   PriceText          `json:"price" bson:"price"`
	Product primitive.ObjectID `json:"product" bson:"product"`
}

type ShippingInfo struct {
	Name       string `json:"name" bson:"name"`
	Email      string `json:"email" bson:"email"`
	Street     string `json:"street" bson:"street"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postalCode" bson:"postalCode"`
	Country    string `json:"country" bson:"country"`
}

type PaymentInfo struct {
	PaymentMethod string `json:"paymentMethod" bson:"paymentMethod"`
	SessionID     string `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
}

type Order struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	User          primitive.ObjectID `json:"user" bson:"user"`
	OrderItems    []LineItem         `json:"orderItems" bson:"orderItems"`
	Shipping      ShippingInfo       `json:"shipping" bson:"shipping"`
	Payment       PaymentInfo        `json:"payment" bson:"payment"`
	ItemsPrice    float64            `json:"itemsPrice" bson:"itemsPrice"`
	TaxPrice      float64            `json:"taxPrice" bson:"taxPrice"`
	ShippingPrice float64            `json:"shippingPrice" bson:"shippingPrice"`
	TotalPrice    float64            `json:"totalPrice" bson:"totalPrice"`
	IsPaid        bool               `json:"isPaid" bson:"isPaid"`
	PaidAt        *time.Time         `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	IsDelivered   bool               `json:"isDelivered" bson:"isDelivered"`
	DeliveredAt   *time.Time         `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// OrderEvent is published on every order lifecycle change.
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	TotalPrice float64   `json:"totalPrice"`
	At         time.Time `json:"at"`
}
