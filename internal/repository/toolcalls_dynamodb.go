package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"integrity-responder/internal/domain"
)

const (
	pkPrefixToolCall = "TOOLCALL#"
	skPrefixListing  = "LISTING#"
	toolCallTTL      = 30 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoToolCallStore.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoToolCallStore records tool-call correlations in a DynamoDB table keyed by
// PK=TOOLCALL#<id>, SK=LISTING#<listing id>. It is used instead of the relational
// table when a table name is configured.
type DynamoToolCallStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewDynamoToolCallStore creates a DynamoToolCallStore.
func NewDynamoToolCallStore(api dynamodbAPI, tableName string) (*DynamoToolCallStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoToolCallStore{api: api, tableName: tableName, now: time.Now}, nil
}

func toolCallPK(toolCallID string) string {
	return pkPrefixToolCall + toolCallID
}

func listingSK(listingID string) string {
	return skPrefixListing + listingID
}

// RecordToolCallListings writes one item per row. Items that already exist are
// left untouched, so repeating a call is a no-op.
func (c *DynamoToolCallStore) RecordToolCallListings(ctx context.Context, rows []domain.ToolCallListing) error {
	for _, row := range rows {
		if row.ToolCallID == "" || row.ListingID == "" {
			return errors.New("repository: RecordToolCallListings: tool call id and listing id are required")
		}
		createdAt := row.CreatedAt
		if createdAt.IsZero() {
			createdAt = c.now().UTC()
		}
		_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(c.tableName),
			Item:                toolCallItem(row, createdAt),
			ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
		})
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("repository: RecordToolCallListings: %w", err)
		}
	}
	return nil
}

func toolCallItem(row domain.ToolCallListing, createdAt time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: toolCallPK(row.ToolCallID)},
		"SK":         &types.AttributeValueMemberS{Value: listingSK(row.ListingID)},
		"toolCallId": &types.AttributeValueMemberS{Value: row.ToolCallID},
		"listingId":  &types.AttributeValueMemberS{Value: row.ListingID},
		"title":      &types.AttributeValueMemberS{Value: row.Title},
		"createdAt":  &types.AttributeValueMemberS{Value: createdAt.Format(time.RFC3339)},
		"ttl":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", createdAt.Add(toolCallTTL).Unix())},
	}
}
