package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

const DefaultLeaseTTL = 5 * time.Minute

// LeaseAPI is the subset of *dynamodb.Client used by LockManager.
type LeaseAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// LockManager implements Locker with DynamoDB conditional writes and TTL.
// It keeps sweeps on separate Lambda instances or servers from overlapping.
type LockManager struct {
	client      LeaseAPI
	tableName   string
	ttlDuration time.Duration
}

// NewLockManager creates a new LockManager.
func NewLockManager(client LeaseAPI, tableName string) *LockManager {
	return &LockManager{
		client:      client,
		tableName:   tableName,
		ttlDuration: DefaultLeaseTTL,
	}
}

// Acquire takes the lease when no lease exists, the existing lease has
// expired, or owner already holds it.
func (m *LockManager) Acquire(ctx context.Context, name, owner string) error {
	now := time.Now().Unix()
	lease := model.Lease{
		Name:      name,
		Owner:     owner,
		ExpiresAt: now + int64(m.ttlDuration.Seconds()),
	}

	item, err := attributevalue.MarshalMap(lease)
	if err != nil {
		return fmt.Errorf("failed to marshal lease: %w", err)
	}

	_, err = m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(m.tableName),
		Item:      item,
		ConditionExpression: aws.String(
			"attribute_not_exists(lock_name) OR expires_at < :now OR #owner = :owner",
		),
		ExpressionAttributeNames: map[string]string{"#owner": "owner"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrLeaseHeld
		}
		return fmt.Errorf("failed to acquire lease: %w", err)
	}
	return nil
}

// Release removes the lease if owner holds it. A lease taken over by someone
// else after expiry is left alone.
func (m *LockManager) Release(ctx context.Context, name, owner string) error {
	_, err := m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(m.tableName),
		Key: map[string]types.AttributeValue{
			"lock_name": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression:      aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{"#owner": "owner"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}
