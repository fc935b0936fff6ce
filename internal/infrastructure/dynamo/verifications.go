package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/forkful/api/internal/domain"
)

// VerificationRepo manages one-time verification codes.
// PK: identity_key, SK: purpose. Because the key pair is the full primary
// key, a Put overwrites any prior item: issuing a new code supersedes the
// old one in the same write, and two simultaneously valid codes for one
// key can never exist.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

func (r *VerificationRepo) Put(ctx context.Context, v *domain.VerificationCode) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put verification code", err)
	}
	return nil
}

func (r *VerificationRepo) Get(ctx context.Context, identityKey, purpose string) (*domain.VerificationCode, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("identity_key", identityKey, "purpose", purpose),
	})
	if err != nil {
		return nil, storeErr("get verification code", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationCode
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Consume marks the code consumed in a single conditional update. The
// condition re-checks value, consumption and expiry atomically, so two
// concurrent calls racing on the same valid code yield exactly one winner,
// and a code superseded between read and consume cannot be spent.
func (r *VerificationRepo) Consume(ctx context.Context, identityKey, purpose, code string, now int64) error {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("identity_key", identityKey, "purpose", purpose),
		UpdateExpression:    aws.String("SET consumed = :t"),
		ConditionExpression: aws.String("attribute_exists(identity_key) AND consumed = :f AND code = :c AND expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":c":   &types.AttributeValueMemberS{Value: code},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
		},
	})
	if err != nil {
		if condFailed(err) {
			return fmt.Errorf("consume verification code: %w", domain.ErrCodeMismatch)
		}
		return storeErr("consume verification code", err)
	}
	return nil
}

func (r *VerificationRepo) Delete(ctx context.Context, identityKey, purpose string) error {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("identity_key", identityKey, "purpose", purpose),
	})
	if err != nil {
		return storeErr("delete verification code", err)
	}
	return nil
}
