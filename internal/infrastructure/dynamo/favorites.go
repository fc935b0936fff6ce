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

// FavoriteRepo provides typed DynamoDB operations for the favorites table.
// PK: account_id, SK: restaurant_id — a favorite is naturally unique per pair.
type FavoriteRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewFavoriteRepo(client *dynamodb.Client, tableName string) *FavoriteRepo {
	return &FavoriteRepo{client: client, tableName: tableName}
}

func (r *FavoriteRepo) Put(ctx context.Context, f *domain.Favorite) error {
	item, err := attributevalue.MarshalMap(f)
	if err != nil {
		return fmt.Errorf("marshal favorite: %w", err)
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put favorite", err)
	}
	return nil
}

func (r *FavoriteRepo) Delete(ctx context.Context, accountID, restaurantID string) error {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("account_id", accountID, "restaurant_id", restaurantID),
	})
	if err != nil {
		return storeErr("delete favorite", err)
	}
	return nil
}

func (r *FavoriteRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Favorite, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("account_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: accountID},
		},
	})
	if err != nil {
		return nil, storeErr("query favorites", err)
	}
	var favorites []domain.Favorite
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &favorites); err != nil {
		return nil, err
	}
	return favorites, nil
}

// DeleteByAccount removes every favorite the account saved. Used by the
// purge cascade.
func (r *FavoriteRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	favorites, err := r.ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for _, f := range favorites {
		if err := r.Delete(ctx, f.AccountID, f.RestaurantID); err != nil {
			return err
		}
	}
	return nil
}
