package dynamo

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/forkful/api/internal/domain"
)

// RestaurantRepo provides typed DynamoDB operations for the restaurants table.
type RestaurantRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRestaurantRepo(client *dynamodb.Client, tableName string) *RestaurantRepo {
	return &RestaurantRepo{client: client, tableName: tableName}
}

func (r *RestaurantRepo) Put(ctx context.Context, rest *domain.Restaurant) error {
	item, err := attributevalue.MarshalMap(rest)
	if err != nil {
		return fmt.Errorf("marshal restaurant: %w", err)
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put restaurant", err)
	}
	return nil
}

func (r *RestaurantRepo) Get(ctx context.Context, restaurantID string) (*domain.Restaurant, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("restaurant_id", restaurantID),
	})
	if err != nil {
		return nil, storeErr("get restaurant", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("restaurant not found: %w", domain.ErrNotFound)
	}
	var rest domain.Restaurant
	if err := attributevalue.UnmarshalMap(out.Item, &rest); err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *RestaurantRepo) Update(ctx context.Context, restaurantID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("restaurant_id", restaurantID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return storeErr("update restaurant", err)
	}
	return nil
}

func (r *RestaurantRepo) HardDelete(ctx context.Context, restaurantID string) error {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("restaurant_id", restaurantID),
	})
	if err != nil {
		return storeErr("delete restaurant", err)
	}
	return nil
}

// ScanPage returns a page of listed restaurants.
// cursor is a base64-encoded restaurant_id used as ExclusiveStartKey.
func (r *RestaurantRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Restaurant, string, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("enable = :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		Limit: aws.Int32(limit),
	}
	if cursor != "" {
		restaurantID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("restaurant_id", restaurantID)
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", storeErr("scan restaurants", err)
	}
	var restaurants []domain.Restaurant
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &restaurants); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["restaurant_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return restaurants, nextCursor, nil
}

// ListByCategory returns listed restaurants in a category via the
// category_id-index GSI.
func (r *RestaurantRepo) ListByCategory(ctx context.Context, categoryID string) ([]domain.Restaurant, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("category_id-index"),
		KeyConditionExpression: aws.String("category_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: categoryID},
		},
	})
	if err != nil {
		return nil, storeErr("query restaurants by category", err)
	}
	var restaurants []domain.Restaurant
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &restaurants); err != nil {
		return nil, err
	}
	return restaurants, nil
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
