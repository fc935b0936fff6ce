package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/forkful/api/internal/domain"
)

// ReviewRepo provides typed DynamoDB operations for the reviews table.
type ReviewRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewReviewRepo(client *dynamodb.Client, tableName string) *ReviewRepo {
	return &ReviewRepo{client: client, tableName: tableName}
}

func (r *ReviewRepo) Put(ctx context.Context, rev *domain.Review) error {
	item, err := attributevalue.MarshalMap(rev)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put review", err)
	}
	return nil
}

func (r *ReviewRepo) Get(ctx context.Context, reviewID string) (*domain.Review, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("review_id", reviewID),
	})
	if err != nil {
		return nil, storeErr("get review", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("review not found: %w", domain.ErrNotFound)
	}
	var rev domain.Review
	if err := attributevalue.UnmarshalMap(out.Item, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *ReviewRepo) HardDelete(ctx context.Context, reviewID string) error {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("review_id", reviewID),
	})
	if err != nil {
		return storeErr("delete review", err)
	}
	return nil
}

func (r *ReviewRepo) ListByRestaurant(ctx context.Context, restaurantID string) ([]domain.Review, error) {
	return r.queryIndex(ctx, "restaurant_id-index", "restaurant_id", restaurantID)
}

func (r *ReviewRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Review, error) {
	return r.queryIndex(ctx, "account_id-index", "account_id", accountID)
}

// DeleteByAccount removes every review the account wrote. Used by the purge
// cascade.
func (r *ReviewRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	reviews, err := r.ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for _, rev := range reviews {
		if err := r.HardDelete(ctx, rev.ReviewID); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReviewRepo) queryIndex(ctx context.Context, index, attr, value string) ([]domain.Review, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
	})
	if err != nil {
		return nil, storeErr("query reviews", err)
	}
	var reviews []domain.Review
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}
