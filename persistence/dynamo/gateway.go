package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/topiccache/codec"
	"github.com/hupe1980/topiccache/model"
	"github.com/hupe1980/topiccache/persistence"
)

// Client is the subset of the DynamoDB API used by the gateway.
// Declared as an interface so tests can run against an in-memory mock.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Gateway persists topic records as DynamoDB items.
//
// Item attributes: topic_key (partition key), topic_label, modality_filter,
// retrieval_policy, tier, and state (codec-encoded TopicState).
type Gateway struct {
	client Client
	table  string
	codec  codec.Codec
}

// NewGateway creates a DynamoDB gateway writing to table.
func NewGateway(client Client, table string) *Gateway {
	return &Gateway{
		client: client,
		table:  table,
		codec:  codec.Default,
	}
}

var _ persistence.Gateway = (*Gateway)(nil)

// Load scans the full table and decodes every item.
func (g *Gateway) Load(ctx context.Context) ([]model.Record, error) {
	var recs []model.Record

	paginator := dynamodb.NewScanPaginator(g.client, &dynamodb.ScanInput{
		TableName: aws.String(g.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", g.table, err)
		}
		for _, item := range page.Items {
			rec, err := g.decodeItem(item)
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
	}
	persistence.SortRecords(recs)
	return recs, nil
}

// Save upserts one item. PutItem replaces the full item, which makes the
// operation idempotent.
func (g *Gateway) Save(ctx context.Context, rec model.Record) error {
	state, err := g.codec.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", rec.Key, err)
	}
	_, err = g.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(g.table),
		Item: map[string]types.AttributeValue{
			"topic_key":        &types.AttributeValueMemberS{Value: rec.Key.Canonical()},
			"topic_label":      &types.AttributeValueMemberS{Value: rec.Key.TopicLabel},
			"modality_filter":  &types.AttributeValueMemberS{Value: rec.Key.ModalityFilter},
			"retrieval_policy": &types.AttributeValueMemberS{Value: rec.Key.RetrievalPolicy},
			"tier":             &types.AttributeValueMemberN{Value: strconv.Itoa(int(rec.Tier))},
			"state":            &types.AttributeValueMemberB{Value: state},
		},
	})
	return err
}

// Delete removes the item for key. Deleting a missing item is a no-op in
// DynamoDB, matching the gateway contract.
func (g *Gateway) Delete(ctx context.Context, key model.TopicKey) error {
	_, err := g.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(g.table),
		Key: map[string]types.AttributeValue{
			"topic_key": &types.AttributeValueMemberS{Value: key.Canonical()},
		},
	})
	return err
}

// Close implements persistence.Gateway.
func (g *Gateway) Close() error { return nil }

func (g *Gateway) decodeItem(item map[string]types.AttributeValue) (model.Record, error) {
	var rec model.Record

	label, ok := item["topic_label"].(*types.AttributeValueMemberS)
	if !ok {
		return rec, fmt.Errorf("item missing topic_label attribute")
	}
	modality, ok := item["modality_filter"].(*types.AttributeValueMemberS)
	if !ok {
		return rec, fmt.Errorf("item missing modality_filter attribute")
	}
	policy, ok := item["retrieval_policy"].(*types.AttributeValueMemberS)
	if !ok {
		return rec, fmt.Errorf("item missing retrieval_policy attribute")
	}
	rec.Key = model.TopicKey{
		TopicLabel:      label.Value,
		ModalityFilter:  modality.Value,
		RetrievalPolicy: policy.Value,
	}

	tierAttr, ok := item["tier"].(*types.AttributeValueMemberN)
	if !ok {
		return rec, fmt.Errorf("item %s missing tier attribute", rec.Key)
	}
	tier, err := strconv.Atoi(tierAttr.Value)
	if err != nil || !model.Tier(tier).Valid() {
		return rec, fmt.Errorf("item %s has invalid tier %q", rec.Key, tierAttr.Value)
	}
	rec.Tier = model.Tier(tier)

	stateAttr, ok := item["state"].(*types.AttributeValueMemberB)
	if !ok {
		return rec, fmt.Errorf("item %s missing state attribute", rec.Key)
	}
	if err := g.codec.Unmarshal(stateAttr.Value, &rec.State); err != nil {
		return rec, fmt.Errorf("decode state for %s: %w", rec.Key, err)
	}
	return rec, nil
}
