package utils

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/apperr"
)

// ParseObjectID converts a hex ObjectID, naming field in the error.
func ParseObjectID(id, field string) (primitive.ObjectID, error) {
	if strings.TrimSpace(id) == "" {
		return primitive.NilObjectID, apperr.New(apperr.Validation, capitalize(field)+" id is required")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap(apperr.Validation, "Invalid "+strings.ToLower(field)+" id", err)
	}
	return oid, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
