package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DashboardViewModel is a named set of widget values a user saved so the
// same dashboard can be opened again later.
type DashboardViewModel struct {
	Id        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	State     map[string]string  `json:"state" bson:"state"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
