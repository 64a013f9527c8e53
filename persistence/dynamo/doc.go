// Package dynamo implements persistence.Gateway on DynamoDB: one item per
// cached topic, keyed by the topic key's canonical form. DynamoDB's
// conditional-free PutItem/DeleteItem give the idempotent upsert/remove
// semantics the gateway contract requires.
//
// Table schema:
//   - Partition key: topic_key (string) - the canonical topic key
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name topic-cache \
//	  --attribute-definitions AttributeName=topic_key,AttributeType=S \
//	  --key-schema AttributeName=topic_key,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamo
