package dynamo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/forkful/api/internal/domain"
)

// SessionRepo provides typed DynamoDB operations for the sessions table.
type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put session", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("session_id", sessionID),
	})
	if err != nil {
		return nil, storeErr("get session", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("refresh_token-index"),
		KeyConditionExpression: aws.String("refresh_token = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: token},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, storeErr("query sessions by refresh token", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Items[0], &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("session_id", sessionID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return storeErr("update session", err)
	}
	return nil
}

func (r *SessionRepo) listByAccount(ctx context.Context, accountID string) ([]string, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("account_id-index"),
		KeyConditionExpression: aws.String("account_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: accountID},
		},
	})
	if err != nil {
		return nil, storeErr("query sessions by account", err)
	}
	ids := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		if sid, ok := item["session_id"].(*types.AttributeValueMemberS); ok {
			ids = append(ids, sid.Value)
		}
	}
	return ids, nil
}

// DisableByAccount turns off every session of the account. Used when a
// deletion request suspends authentication during the grace window.
func (r *SessionRepo) DisableByAccount(ctx context.Context, accountID string) error {
	ids, err := r.listByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	var firstErr error
	for _, sid := range ids {
		if err := r.Update(ctx, sid, map[string]interface{}{"enable": false}); err != nil {
			slog.Warn("failed to disable session", "session_id", sid, "account_id", accountID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DeleteByAccount removes every session of the account. Used by the purge
// cascade.
func (r *SessionRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	ids, err := r.listByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for _, sid := range ids {
		dctx, cancel := callCtx(ctx)
		_, err := r.client.DeleteItem(dctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("session_id", sid),
		})
		cancel()
		if err != nil {
			return storeErr("delete session", err)
		}
	}
	return nil
}
