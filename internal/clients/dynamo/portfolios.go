package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/aristath/papertrader/internal/domain"
)

// PortfolioStore implements domain.PortfolioStore on the portfolios table.
// All holdings of a user live in one item under the holdings map.
type PortfolioStore struct{ c *Client }

// Get returns the user's holdings, empty when the user has none
func (s *PortfolioStore) Get(ctx context.Context, username string) (domain.Portfolio, error) {
	out, err := s.c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.c.tables.Portfolios),
		Key:            key(username),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, unavailable("get portfolio", err)
	}

	p := make(domain.Portfolio)
	holdings, ok := out.Item["holdings"].(*types.AttributeValueMemberM)
	if !ok {
		return p, nil
	}

	for symbol, raw := range holdings.Value {
		m, ok := raw.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("portfolio %s: holding %s is not a map", username, symbol)
		}
		h := domain.Holding{Symbol: symbol}
		if h.Shares, err = getInt(m.Value, "shares"); err != nil {
			return nil, fmt.Errorf("portfolio %s/%s: %w", username, symbol, err)
		}
		if h.AvgCost, err = getDecimal(m.Value, "avg_price"); err != nil {
			return nil, fmt.Errorf("portfolio %s/%s: %w", username, symbol, err)
		}
		if h.Shares > 0 {
			p[symbol] = h
		}
	}

	return p, nil
}

// Replace overwrites the holdings map in a single write
func (s *PortfolioStore) Replace(ctx context.Context, username string, p domain.Portfolio) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("failed to replace portfolio of %s: %w", username, err)
	}

	holdings := make(item, len(p))
	for symbol, h := range p {
		holdings[symbol] = &types.AttributeValueMemberM{Value: item{
			"shares":    integer(h.Shares),
			"avg_price": num(h.AvgCost),
		}}
	}

	_, err := s.c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.c.tables.Portfolios),
		Key:              key(username),
		UpdateExpression: aws.String("SET holdings = :h"),
		ExpressionAttributeValues: item{
			":h": &types.AttributeValueMemberM{Value: holdings},
		},
	})
	if err != nil {
		return unavailable("update portfolio", err)
	}
	return nil
}
