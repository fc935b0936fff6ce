package domain

import "time"

// Favorite marks a restaurant saved by an account.
// PK: account_id, SK: restaurant_id.
type Favorite struct {
	AccountID    string    `json:"account_id" dynamodbav:"account_id"`
	RestaurantID string    `json:"restaurant_id" dynamodbav:"restaurant_id"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
}
