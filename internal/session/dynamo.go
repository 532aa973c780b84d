package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoRepository.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepository stores sessions in a DynamoDB table keyed by user_id.
// If client is nil, it uses an in-memory map (tests and DEV_MODE).
type DynamoRepository struct {
	client    DynamoAPI
	tableName string

	// In-memory fallback
	items map[string]model.Session
	mu    sync.RWMutex
}

// NewDynamoRepository creates a repository backed by the given table.
func NewDynamoRepository(client DynamoAPI, tableName string) *DynamoRepository {
	return &DynamoRepository{
		client:    client,
		tableName: tableName,
		items:     make(map[string]model.Session),
	}
}

// NewMemoryRepository creates a repository that never leaves the process.
func NewMemoryRepository() *DynamoRepository {
	return NewDynamoRepository(nil, "")
}

func (r *DynamoRepository) key(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
	}
}

// Get retrieves a session by user id.
func (r *DynamoRepository) Get(ctx context.Context, userID string) (*model.Session, error) {
	if r.client == nil {
		r.mu.RLock()
		s, ok := r.items[userID]
		r.mu.RUnlock()
		if !ok {
			return nil, ErrNotFound
		}
		return &s, nil
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.key(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var s model.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Put writes the whole session item.
func (r *DynamoRepository) Put(ctx context.Context, s model.Session) error {
	if r.client == nil {
		r.mu.Lock()
		r.items[s.UserID] = s
		r.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save session to DynamoDB: %w", err)
	}
	return nil
}

// Delete removes a session if present.
func (r *DynamoRepository) Delete(ctx context.Context, userID string) error {
	if r.client == nil {
		r.mu.Lock()
		delete(r.items, userID)
		r.mu.Unlock()
		return nil
	}

	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       r.key(userID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired scans for expired sessions and deletes them one by one.
// The delete is conditional so a session refreshed mid-sweep survives.
// Table TTL on expires_at_ttl also removes rows eventually; the sweep makes
// removal prompt.
func (r *DynamoRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		removed := 0
		for id, s := range r.items {
			if s.IsExpired(now) {
				delete(r.items, id)
				removed++
			}
		}
		return removed, nil
	}

	values := map[string]types.AttributeValue{
		":zero": &types.AttributeValueMemberN{Value: "0"},
		":now":  &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
	}
	cond := aws.String("expires_at_ttl > :zero AND expires_at_ttl < :now")

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          cond,
		ProjectionExpression:      aws.String("user_id"),
		ExpressionAttributeValues: values,
	})

	removed := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return removed, fmt.Errorf("failed to scan expired sessions: %w", err)
		}
		for _, item := range page.Items {
			id, ok := item["user_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName:                 aws.String(r.tableName),
				Key:                       r.key(id.Value),
				ConditionExpression:       cond,
				ExpressionAttributeValues: values,
			})
			if err != nil {
				var ccf *types.ConditionalCheckFailedException
				if errors.As(err, &ccf) {
					continue
				}
				return removed, fmt.Errorf("failed to delete expired session: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}
