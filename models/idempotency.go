package models

import "time"

// IdempotencyRecord represents an idempotency key record stored in Mongo.
type IdempotencyRecord struct {
	Key         string         `bson:"key" json:"key"`
	Method      string         `bson:"method" json:"method"`
	Path        string         `bson:"path" json:"path"`
	UserID      string         `bson:"userId" json:"userId"`
	RequestHash string         `bson:"requestHash" json:"requestHash"`
	Response    *SavedResponse `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	ExpiresAt   time.Time      `bson:"expiresAt" json:"expiresAt"`
}

type SavedResponse struct {
	Status int    `bson:"status" json:"status"`
	Body   []byte `bson:"body" json:"body"`
}
