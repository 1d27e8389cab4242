package dynamo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// sortKeyLayout is fixed width so sort keys order chronologically
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z"

type item = map[string]types.AttributeValue

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func num(d decimal.Decimal) types.AttributeValue { return &types.AttributeValueMemberN{Value: d.String()} }

func integer(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func key(username string) item {
	return item{"username": str(username)}
}

func sortKey(ts time.Time, id string) string {
	return ts.UTC().Format(sortKeyLayout) + "#" + id
}

func getString(it item, name string) (string, error) {
	v, ok := it[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %s missing or not a string", name)
	}
	return v.Value, nil
}

func getDecimal(it item, name string) (decimal.Decimal, error) {
	v, ok := it[name].(*types.AttributeValueMemberN)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("attribute %s missing or not a number", name)
	}
	d, err := decimal.NewFromString(v.Value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("attribute %s: %w", name, err)
	}
	return d, nil
}

func getInt(it item, name string) (int64, error) {
	v, ok := it[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %s missing or not a number", name)
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", name, err)
	}
	return n, nil
}

// getTime accepts RFC 3339 with or without zone, as older rows were written
// from naive local timestamps
func getTime(it item, name string) (time.Time, error) {
	s, err := getString(it, name)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("attribute %s: unparseable time %q", name, s)
}
