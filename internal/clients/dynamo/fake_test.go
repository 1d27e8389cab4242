package dynamo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory DynamoDB that understands the expressions the stores send
type fakeAPI struct {
	mu       sync.Mutex
	tables   map[string]map[string]item // table -> composite key -> item
	failWith error
	pageSize int
	queries  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{tables: make(map[string]map[string]item)}
}

func (f *fakeAPI) table(name string) map[string]item {
	t, ok := f.tables[name]
	if !ok {
		t = make(map[string]item)
		f.tables[name] = t
	}
	return t
}

func compositeKey(it item) string {
	k := it["username"].(*types.AttributeValueMemberS).Value
	if sk, ok := it["sort_key"].(*types.AttributeValueMemberS); ok {
		k += "|" + sk.Value
	}
	return k
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &dynamodb.GetItemOutput{Item: f.table(aws.ToString(in.TableName))[compositeKey(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	t := f.table(aws.ToString(in.TableName))
	k := compositeKey(in.Item)
	if in.ConditionExpression != nil {
		if _, exists := t[k]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	}
	t[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	t := f.table(aws.ToString(in.TableName))
	k := compositeKey(in.Key)
	existing, exists := t[k]
	if aws.ToString(in.ConditionExpression) == "attribute_exists(username)" && !exists {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}
	if !exists {
		existing = item{"username": in.Key["username"]}
	}
	updated := make(item, len(existing)+1)
	for name, v := range existing {
		updated[name] = v
	}
	switch aws.ToString(in.UpdateExpression) {
	case "SET balance = :b":
		updated["balance"] = in.ExpressionAttributeValues[":b"]
	case "SET holdings = :h":
		updated["holdings"] = in.ExpressionAttributeValues[":h"]
	default:
		return nil, errors.New("fake: unsupported update expression")
	}
	t[k] = updated
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failWith != nil {
		return nil, f.failWith
	}
	user := in.ExpressionAttributeValues[":u"].(*types.AttributeValueMemberS).Value

	var keys []string
	for k, it := range f.table(aws.ToString(in.TableName)) {
		if it["username"].(*types.AttributeValueMemberS).Value == user {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := compositeKey(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after) + 1
	}
	end := len(keys)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	out := &dynamodb.QueryOutput{}
	t := f.table(aws.ToString(in.TableName))
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, t[k])
	}
	if end < len(keys) {
		last := t[keys[end-1]]
		out.LastEvaluatedKey = item{"username": last["username"], "sort_key": last["sort_key"]}
	}
	return out, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}
