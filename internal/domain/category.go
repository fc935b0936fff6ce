package domain

type Category struct {
	CategoryID string `json:"id" dynamodbav:"category_id"`
	Name       string `json:"name" dynamodbav:"name"`
	Slug       string `json:"slug" dynamodbav:"slug"`
}

type CategoryInput struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required"`
}
