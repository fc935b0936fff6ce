package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/forkful/api/internal/domain"
)

// CategoryRepo provides typed DynamoDB operations for the categories table.
type CategoryRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCategoryRepo(client *dynamodb.Client, tableName string) *CategoryRepo {
	return &CategoryRepo{client: client, tableName: tableName}
}

func (r *CategoryRepo) Scan(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, storeErr("scan categories", err)
	}
	var categories []domain.Category
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepo) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("category_id", categoryID),
	})
	if err != nil {
		return nil, storeErr("get category", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("category not found: %w", domain.ErrNotFound)
	}
	var c domain.Category
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) Put(ctx context.Context, c *domain.Category) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal category: %w", err)
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put category", err)
	}
	return nil
}

func (r *CategoryRepo) Update(ctx context.Context, categoryID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("category_id", categoryID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return storeErr("update category", err)
	}
	return nil
}

func (r *CategoryRepo) HardDelete(ctx context.Context, categoryID string) error {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("category_id", categoryID),
	})
	if err != nil {
		return storeErr("delete category", err)
	}
	return nil
}
