package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/maltehedderich/steam-api-go/internal/clock"
)

// dynamoAPI is the subset of the DynamoDB client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDBStore keeps entries in a DynamoDB table whose partition key is
// "key". The table's TTL attribute should be set to "expires_at";
// because DynamoDB deletes expired items lazily, Get also filters them.
type DynamoDBStore struct {
	client    dynamoAPI
	tableName string
	clock     clock.Clock
}

// Version is bumped by Update and guards its conditional writes.
type dynamoDBItem struct {
	Key       string `dynamodbav:"key"`
	Value     string `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
	Version   int64  `dynamodbav:"version"`
}

// NewDynamoDBStore loads the default AWS configuration for region and
// returns a store for tableName.
func NewDynamoDBStore(ctx context.Context, tableName, region string) (*DynamoDBStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newDynamoDBStore(dynamodb.NewFromConfig(cfg), tableName, nil), nil
}

func newDynamoDBStore(client dynamoAPI, tableName string, clk clock.Clock) *DynamoDBStore {
	return &DynamoDBStore{client: client, tableName: tableName, clock: clock.OrSystem(clk)}
}

func (d *DynamoDBStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}

// Get returns the live value stored under key.
func (d *DynamoDBStore) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return "", false, nil
	}

	var item dynamoDBItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal DynamoDB item: %w", err)
	}
	if d.clock.Now().Unix() >= item.ExpiresAt {
		return "", false, nil
	}
	return item.Value, true, nil
}

// Set writes value under key with an expires_at of now + ttl.
func (d *DynamoDBStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	av, err := attributevalue.MarshalMap(dynamoDBItem{
		Key:       key,
		Value:     value,
		ExpiresAt: d.clock.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal DynamoDB item: %w", err)
	}

	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to put item to DynamoDB: %w", err)
	}
	return nil
}

// Update reads key, applies fn and writes the result with a condition on
// the version it read, retrying when another writer got there first.
func (d *DynamoDBStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	for i := 0; i < maxUpdateAttempts; i++ {
		result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(d.tableName),
			Key:            d.itemKey(key),
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("failed to get item from DynamoDB: %w", err)
		}

		var item dynamoDBItem
		if result.Item != nil {
			if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
				return fmt.Errorf("failed to unmarshal DynamoDB item: %w", err)
			}
		}
		now := d.clock.Now()
		live := result.Item != nil && now.Unix() < item.ExpiresAt
		current := ""
		if live {
			current = item.Value
		}

		value, err := fn(current, live)
		if err != nil {
			return err
		}

		av, err := attributevalue.MarshalMap(dynamoDBItem{
			Key:       key,
			Value:     value,
			ExpiresAt: now.Add(ttl).Unix(),
			Version:   item.Version + 1,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal DynamoDB item: %w", err)
		}

		condition := "#version = :version"
		if item.Version == 0 {
			condition = "attribute_not_exists(#version) OR #version = :version"
		}
		_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(d.tableName),
			Item:                     av,
			ConditionExpression:      aws.String(condition),
			ExpressionAttributeNames: map[string]string{"#version": "version"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(item.Version, 10)},
			},
		})
		if err == nil {
			return nil
		}
		var conflict *types.ConditionalCheckFailedException
		if !errors.As(err, &conflict) {
			return fmt.Errorf("failed to put item to DynamoDB: %w", err)
		}
	}
	return ErrConflict
}

// Delete removes key.
func (d *DynamoDBStore) Delete(ctx context.Context, key string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.itemKey(key),
	}); err != nil {
		return fmt.Errorf("failed to delete item from DynamoDB: %w", err)
	}
	return nil
}

// Ping describes the table to check access.
func (d *DynamoDBStore) Ping(ctx context.Context) error {
	if _, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tableName),
	}); err != nil {
		return fmt.Errorf("DynamoDB health check failed: %w", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no connection to release.
func (d *DynamoDBStore) Close() error {
	return nil
}
