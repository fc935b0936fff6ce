package domain

import "time"

type Review struct {
	ReviewID     string    `json:"id" dynamodbav:"review_id"`
	RestaurantID string    `json:"restaurant_id" dynamodbav:"restaurant_id"`
	AccountID    string    `json:"account_id" dynamodbav:"account_id"`
	Rating       int       `json:"rating" dynamodbav:"rating"`
	Body         string    `json:"body" dynamodbav:"body"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateReviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Body   string `json:"body" validate:"max=4000"`
}
