package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/aristath/papertrader/internal/domain"
)

// TransactionLog implements domain.TransactionLog on the transactions table
type TransactionLog struct{ c *Client }

// Append writes a transaction. Re-appending the same id is rejected.
func (l *TransactionLog) Append(ctx context.Context, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	_, err := l.c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.c.tables.Transactions),
		Item: item{
			"username":       str(tx.Username),
			"sort_key":       str(sortKey(tx.Timestamp, tx.ID)),
			"transaction_id": str(tx.ID),
			"symbol":         str(tx.Symbol),
			"type":           str(string(tx.Side)),
			"quantity":       integer(tx.Quantity),
			"price":          num(tx.Price),
			"total":          num(tx.Total),
			"timestamp":      str(tx.Timestamp.UTC().Format(time.RFC3339Nano)),
		},
		ConditionExpression: aws.String("attribute_not_exists(sort_key)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%w: duplicate transaction %s", domain.ErrStoreUnavailable, tx.ID)
	}
	if err != nil {
		return unavailable("put transaction", err)
	}
	return nil
}

// ListFor returns the user's transactions, oldest first
func (l *TransactionLog) ListFor(ctx context.Context, username string) ([]domain.Transaction, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(l.c.tables.Transactions),
		KeyConditionExpression: aws.String("username = :u"),
		ExpressionAttributeValues: item{
			":u": str(username),
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	}

	txs := make([]domain.Transaction, 0)
	for {
		out, err := l.c.api.Query(ctx, input)
		if err != nil {
			return nil, unavailable("query transactions", err)
		}

		for _, it := range out.Items {
			tx, err := decodeTransaction(username, it)
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	return txs, nil
}

func decodeTransaction(username string, it item) (domain.Transaction, error) {
	tx := domain.Transaction{Username: username}

	var (
		side string
		err  error
	)
	if tx.ID, err = getString(it, "transaction_id"); err != nil {
		return tx, fmt.Errorf("transaction of %s: %w", username, err)
	}
	if tx.Symbol, err = getString(it, "symbol"); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if side, err = getString(it, "type"); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Side, err = domain.TradeSideFromString(side); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Quantity, err = getInt(it, "quantity"); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Price, err = getDecimal(it, "price"); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Total, err = getDecimal(it, "total"); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Timestamp, err = getTime(it, "timestamp"); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	return tx, nil
}
