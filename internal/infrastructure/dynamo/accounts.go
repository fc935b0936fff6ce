package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/forkful/api/internal/domain"
)

// AccountRepo provides typed DynamoDB operations for the accounts table.
// Lifecycle transitions are single conditional updates: the condition names
// the status the account must still be in, which is the only concurrency
// control the state machine needs.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

func (r *AccountRepo) Put(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(account_id)"),
	})
	if err != nil {
		if condFailed(err) {
			return fmt.Errorf("account already exists: %w", domain.ErrConflict)
		}
		return storeErr("put account", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("account_id", accountID),
	})
	if err != nil {
		return nil, storeErr("get account", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *AccountRepo) Update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(timeFmt)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return storeErr("update account", err)
	}
	return nil
}

// MarkPendingDeletion flips active → pending_deletion and stamps the request
// time. Succeeds only while the account is still active.
func (r *AccountRepo) MarkPendingDeletion(ctx context.Context, accountID string, at time.Time, reason *string) error {
	values := map[string]types.AttributeValue{
		":pending": &types.AttributeValueMemberS{Value: domain.StatusPendingDeletion},
		":active":  &types.AttributeValueMemberS{Value: domain.StatusActive},
		":at":      &types.AttributeValueMemberS{Value: at.UTC().Format(timeFmt)},
	}
	expr := "SET #s = :pending, deletion_requested_at = :at, updated_at = :at"
	if reason != nil {
		expr += ", deletion_reason = :reason"
		values[":reason"] = &types.AttributeValueMemberS{Value: *reason}
	}
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(account_id) AND #s = :active"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if condFailed(err) {
			return fmt.Errorf("account is not active: %w", domain.ErrAlreadyPending)
		}
		return storeErr("mark pending deletion", err)
	}
	return nil
}

// Reactivate flips pending_deletion → active and clears the deletion marks.
// Succeeds only while the account is still pending.
func (r *AccountRepo) Reactivate(ctx context.Context, accountID string, at time.Time) error {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("account_id", accountID),
		UpdateExpression:    aws.String("SET #s = :active, updated_at = :at REMOVE deletion_requested_at, deletion_reason"),
		ConditionExpression: aws.String("attribute_exists(account_id) AND #s = :pending"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active":  &types.AttributeValueMemberS{Value: domain.StatusActive},
			":pending": &types.AttributeValueMemberS{Value: domain.StatusPendingDeletion},
			":at":      &types.AttributeValueMemberS{Value: at.UTC().Format(timeFmt)},
		},
	})
	if err != nil {
		if condFailed(err) {
			return fmt.Errorf("account is not pending deletion: %w", domain.ErrNotPending)
		}
		return storeErr("reactivate account", err)
	}
	return nil
}

// ClaimForPurge atomically transitions pending_deletion → deleted, but only
// if the grace period elapsed before cutoff. Exactly one of any number of
// concurrent sweeps can win the claim for a given account; the losers see
// claimed=false and skip it.
func (r *AccountRepo) ClaimForPurge(ctx context.Context, accountID string, cutoff time.Time) (bool, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("account_id", accountID),
		UpdateExpression:    aws.String("SET #s = :deleted"),
		ConditionExpression: aws.String("attribute_exists(account_id) AND #s = :pending AND deletion_requested_at <= :cutoff"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":deleted": &types.AttributeValueMemberS{Value: domain.StatusDeleted},
			":pending": &types.AttributeValueMemberS{Value: domain.StatusPendingDeletion},
			":cutoff":  &types.AttributeValueMemberS{Value: cutoff.UTC().Format(timeFmt)},
		},
	})
	if err != nil {
		if condFailed(err) {
			return false, nil
		}
		return false, storeErr("claim account for purge", err)
	}
	return true, nil
}

// ScrubPII overwrites personal attributes on a purged account, leaving a
// tombstone that keeps deleted terminal on the login path. Email and
// username are GSI keys, so they get unique placeholders instead of being
// removed.
func (r *AccountRepo) ScrubPII(ctx context.Context, accountID string) error {
	placeholder := "deleted:" + accountID
	ctx, cancel := callCtx(ctx)
	defer cancel()
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("account_id", accountID),
		UpdateExpression: aws.String("SET email = :ph, username = :ph, display_name = :empty, password_hash = :empty, avatar_key = :empty REMOVE phone, deletion_reason"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ph":    &types.AttributeValueMemberS{Value: placeholder},
			":empty": &types.AttributeValueMemberS{Value: ""},
		},
	})
	if err != nil {
		return storeErr("scrub account", err)
	}
	return nil
}

// QueryPendingBefore returns accounts still pending deletion whose request
// time is at or before cutoff, via the status-index GSI.
func (r *AccountRepo) QueryPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Account, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("status-index"),
		KeyConditionExpression: aws.String("#s = :pending AND deletion_requested_at <= :cutoff"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: domain.StatusPendingDeletion},
			":cutoff":  &types.AttributeValueMemberS{Value: cutoff.UTC().Format(timeFmt)},
		},
	})
	if err != nil {
		return nil, storeErr("query pending accounts", err)
	}
	var accounts []domain.Account
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.Account, error) {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, storeErr("query accounts", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}
