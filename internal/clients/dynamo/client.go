// Package dynamo implements the account, portfolio and transaction stores on
// Amazon DynamoDB, using the table layout of the StockTrading* tables:
//
//	users:        username (hash) | password, balance, created_at
//	portfolios:   username (hash) | holdings {symbol: {shares, avg_price}}
//	transactions: username (hash), sort_key (range) | transaction_id, symbol,
//	              type, quantity, price, total, timestamp
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
)

// API is the subset of the DynamoDB client used by the stores
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Tables names the three tables
type Tables struct {
	Users        string
	Portfolios   string
	Transactions string
}

// Client groups the three DynamoDB-backed stores
type Client struct {
	api    API
	tables Tables
	log    zerolog.Logger
}

// NewClient creates a DynamoDB store client
func NewClient(api API, tables Tables, log zerolog.Logger) *Client {
	return &Client{
		api:    api,
		tables: tables,
		log:    log.With().Str("client", "dynamodb").Logger(),
	}
}

// NewFromConfig creates a store client from an AWS SDK config
func NewFromConfig(cfg aws.Config, tables Tables, log zerolog.Logger) *Client {
	return NewClient(dynamodb.NewFromConfig(cfg), tables, log)
}

// Accounts returns the AccountStore backed by the users table
func (c *Client) Accounts() *AccountStore { return &AccountStore{c: c} }

// Portfolios returns the PortfolioStore backed by the portfolios table
func (c *Client) Portfolios() *PortfolioStore { return &PortfolioStore{c: c} }

// Transactions returns the TransactionLog backed by the transactions table
func (c *Client) Transactions() *TransactionLog { return &TransactionLog{c: c} }

// Ping checks that every table exists and is reachable
func (c *Client) Ping(ctx context.Context) error {
	for _, table := range []string{c.tables.Users, c.tables.Portfolios, c.tables.Transactions} {
		out, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
		if err != nil {
			return unavailable("describe table "+table, err)
		}
		if out.Table != nil && out.Table.TableStatus != types.TableStatusActive && out.Table.TableStatus != types.TableStatusUpdating {
			return fmt.Errorf("%w: table %s is %s", domain.ErrStoreUnavailable, table, out.Table.TableStatus)
		}
	}
	return nil
}

// unavailable wraps a backend failure. Context errors are kept as they are.
func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %s: %s", domain.ErrStoreUnavailable, op, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
