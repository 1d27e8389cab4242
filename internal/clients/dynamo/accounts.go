package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrader/internal/domain"
)

// AccountStore implements domain.AccountStore on the users table
type AccountStore struct{ c *Client }

// Get returns the account, or nil when the username is unknown
func (s *AccountStore) Get(ctx context.Context, username string) (*domain.Account, error) {
	out, err := s.c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.c.tables.Users),
		Key:            key(username),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, unavailable("get user", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	acc := domain.Account{Username: username}
	if acc.PasswordHash, err = getString(out.Item, "password"); err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	if acc.Balance, err = getDecimal(out.Item, "balance"); err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	if _, ok := out.Item["created_at"]; ok {
		if acc.CreatedAt, err = getTime(out.Item, "created_at"); err != nil {
			s.c.log.Warn().Err(err).Str("username", username).Msg("Ignoring unreadable created_at")
		}
	}

	return &acc, nil
}

// Create inserts a new account unless the username is taken
func (s *AccountStore) Create(ctx context.Context, account domain.Account) error {
	_, err := s.c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.c.tables.Users),
		Item: item{
			"username":   str(account.Username),
			"password":   str(account.PasswordHash),
			"balance":    num(account.Balance),
			"created_at": str(account.CreatedAt.UTC().Format(time.RFC3339Nano)),
		},
		ConditionExpression: aws.String("attribute_not_exists(username)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%w: %s", domain.ErrUserAlreadyExists, account.Username)
	}
	if err != nil {
		return unavailable("put user", err)
	}

	s.c.log.Info().Str("username", account.Username).Msg("Account created")
	return nil
}

// SetBalance overwrites the balance of an existing account
func (s *AccountStore) SetBalance(ctx context.Context, username string, balance decimal.Decimal) error {
	_, err := s.c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.c.tables.Users),
		Key:                 key(username),
		UpdateExpression:    aws.String("SET balance = :b"),
		ConditionExpression: aws.String("attribute_exists(username)"),
		ExpressionAttributeValues: item{
			":b": num(balance),
		},
	})
	if isConditionFailed(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return unavailable("update balance", err)
	}
	return nil
}
