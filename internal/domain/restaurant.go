package domain

import "time"

type Restaurant struct {
	RestaurantID string    `json:"id" dynamodbav:"restaurant_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	CategoryID   string    `json:"category_id" dynamodbav:"category_id"`
	Address      string    `json:"address" dynamodbav:"address"`
	Description  string    `json:"description" dynamodbav:"description"`
	CoverKey     string    `json:"-" dynamodbav:"cover_key"`
	CoverURL     string    `json:"cover_url,omitempty" dynamodbav:"-"`
	Enable       int       `json:"enable" dynamodbav:"enable"` // 1 = listed, 0 = hidden
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateRestaurantRequest struct {
	Name        string `json:"name" validate:"required"`
	CategoryID  string `json:"category_id" validate:"required"`
	Address     string `json:"address" validate:"required"`
	Description string `json:"description"`
}

type UpdateRestaurantRequest struct {
	Name        *string `json:"name"`
	CategoryID  *string `json:"category_id"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
	Enable      *int    `json:"enable"`
}
