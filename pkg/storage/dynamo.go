package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var kvTracer = otel.Tracer("aichat/storage/dynamo")

// batchDeleteChunk is DynamoDB's BatchWriteItem request ceiling.
const batchDeleteChunk = 25

// DynamoStore implements KVStore on a single DynamoDB table with two
// global secondary indexes (GSI1, GSI2).
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoStore creates a KV store against the configured table.
func NewDynamoStore(ctx context.Context, region, table, endpoint string) (*DynamoStore, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &DynamoStore{client: client, table: table}, nil
}

// Put writes an item, replacing any existing item at the same key.
func (d *DynamoStore) Put(ctx context.Context, item Item) error {
	ctx, span := kvTracer.Start(ctx, "Dynamo.Put",
		trace.WithAttributes(attribute.String("dynamo.table", d.table)),
	)
	defer span.End()

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put failed")
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// Get reads one item by its composite key; nil when absent.
func (d *DynamoStore) Get(ctx context.Context, pk, sk string) (Item, error) {
	ctx, span := kvTracer.Start(ctx, "Dynamo.Get",
		trace.WithAttributes(
			attribute.String("dynamo.table", d.table),
			attribute.String("dynamo.pk", pk),
		),
	)
	defer span.End()

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get failed")
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var item Item
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item, nil
}

// Query runs a single-partition query, optionally through a named index,
// following pagination until the limit (or the partition) is exhausted.
func (d *DynamoStore) Query(ctx context.Context, in QueryInput) ([]Item, error) {
	ctx, span := kvTracer.Start(ctx, "Dynamo.Query",
		trace.WithAttributes(
			attribute.String("dynamo.table", d.table),
			attribute.String("dynamo.index", in.Index),
			attribute.String("dynamo.partition", in.PartitionKey),
		),
	)
	defer span.End()

	pkAttr, skAttr := indexKeyAttrs(in.Index)

	keyCond := "#pk = :pk"
	names := map[string]string{"#pk": pkAttr}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: in.PartitionKey},
	}
	if in.SortKeyPrefix != "" {
		keyCond += " AND begins_with(#sk, :skprefix)"
		names["#sk"] = skAttr
		values[":skprefix"] = &types.AttributeValueMemberS{Value: in.SortKeyPrefix}
	}

	var filterExpr *string
	if len(in.Filter) > 0 {
		clauses := make([]string, 0, len(in.Filter))
		i := 0
		for attr, val := range in.Filter {
			nameKey := fmt.Sprintf("#f%d", i)
			valKey := fmt.Sprintf(":f%d", i)
			names[nameKey] = attr
			av, err := attributevalue.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal filter value: %w", err)
			}
			values[valKey] = av
			clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valKey))
			i++
		}
		filterExpr = aws.String(strings.Join(clauses, " AND "))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.table),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(in.ScanForward),
		FilterExpression:          filterExpr,
	}
	if in.Index != "" {
		input.IndexName = aws.String(in.Index)
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(int32(in.Limit))
	}

	var items []Item
	for {
		out, err := d.client.Query(ctx, input)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "query failed")
			return nil, fmt.Errorf("failed to query: %w", err)
		}
		for _, raw := range out.Items {
			var item Item
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal item: %w", err)
			}
			items = append(items, item)
			if in.Limit > 0 && len(items) >= in.Limit {
				span.SetAttributes(attribute.Int("dynamo.count", len(items)))
				return items, nil
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	span.SetAttributes(attribute.Int("dynamo.count", len(items)))
	return items, nil
}

// Update applies SET/ADD/REMOVE clauses to a single item in one request.
func (d *DynamoStore) Update(ctx context.Context, in UpdateInput) error {
	ctx, span := kvTracer.Start(ctx, "Dynamo.Update",
		trace.WithAttributes(
			attribute.String("dynamo.table", d.table),
			attribute.String("dynamo.pk", in.PK),
		),
	)
	defer span.End()

	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	var setClauses, addClauses, removeClauses []string
	i := 0

	for attr, val := range in.Set {
		nameKey := fmt.Sprintf("#u%d", i)
		valKey := fmt.Sprintf(":u%d", i)
		names[nameKey] = attr
		av, err := attributevalue.Marshal(val)
		if err != nil {
			return fmt.Errorf("failed to marshal update value: %w", err)
		}
		values[valKey] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valKey))
		i++
	}
	for attr, delta := range in.Add {
		nameKey := fmt.Sprintf("#u%d", i)
		valKey := fmt.Sprintf(":u%d", i)
		names[nameKey] = attr
		values[valKey] = &types.AttributeValueMemberN{Value: formatNumber(delta)}
		addClauses = append(addClauses, fmt.Sprintf("%s %s", nameKey, valKey))
		i++
	}
	for _, attr := range in.Remove {
		nameKey := fmt.Sprintf("#u%d", i)
		names[nameKey] = attr
		removeClauses = append(removeClauses, nameKey)
		i++
	}

	var parts []string
	if len(setClauses) > 0 {
		parts = append(parts, "SET "+strings.Join(setClauses, ", "))
	}
	if len(addClauses) > 0 {
		parts = append(parts, "ADD "+strings.Join(addClauses, ", "))
	}
	if len(removeClauses) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removeClauses, ", "))
	}
	if len(parts) == 0 {
		return nil
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: in.PK},
			"SK": &types.AttributeValueMemberS{Value: in.SK},
		},
		UpdateExpression:         aws.String(strings.Join(parts, " ")),
		ExpressionAttributeNames: names,
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}
	if _, err := d.client.UpdateItem(ctx, input); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// BatchDelete removes items in chunks of 25, retrying unprocessed keys.
func (d *DynamoStore) BatchDelete(ctx context.Context, keys []Key) error {
	ctx, span := kvTracer.Start(ctx, "Dynamo.BatchDelete",
		trace.WithAttributes(
			attribute.String("dynamo.table", d.table),
			attribute.Int("dynamo.keys", len(keys)),
		),
	)
	defer span.End()

	for start := 0; start < len(keys); start += batchDeleteChunk {
		end := start + batchDeleteChunk
		if end > len(keys) {
			end = len(keys)
		}
		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: key.PK},
						"SK": &types.AttributeValueMemberS{Value: key.SK},
					},
				},
			})
		}
		pending := map[string][]types.WriteRequest{d.table: requests}
		for len(pending[d.table]) > 0 {
			out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "batch delete failed")
				return fmt.Errorf("failed to batch delete: %w", err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
