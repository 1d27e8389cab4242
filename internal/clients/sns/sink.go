// Package sns delivers user notifications by publishing to an Amazon SNS topic.
package sns

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
)

// SubjectPrefix is prepended to every published subject
const SubjectPrefix = "[Stock Trading] "

// maxSubjectLength is the SNS limit on email subjects
const maxSubjectLength = 100

// Publisher is the subset of the SNS client used by the sink
type Publisher interface {
	Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// Sink implements domain.NotificationSink on one SNS topic
type Sink struct {
	client   Publisher
	topicARN string
	now      func() time.Time
	log      zerolog.Logger
}

// NewSink creates a sink publishing to topicARN
func NewSink(client Publisher, topicARN string, log zerolog.Logger) *Sink {
	return &Sink{
		client:   client,
		topicARN: topicARN,
		now:      time.Now,
		log:      log.With().Str("client", "sns").Logger(),
	}
}

// NewSinkFromConfig creates a sink from an AWS SDK config
func NewSinkFromConfig(cfg aws.Config, topicARN string, log zerolog.Logger) *Sink {
	return NewSink(awssns.NewFromConfig(cfg), topicARN, log)
}

// Format returns the published subject and message for a notification
func Format(username, subject, body string, at time.Time) (string, string) {
	fullSubject := truncateRunes(SubjectPrefix+subject, maxSubjectLength)
	message := fmt.Sprintf("User: %s\n\n%s\n\nTime: %s", username, body, at.Format("2006-01-02 15:04:05"))
	return fullSubject, message
}

// truncateRunes cuts s to at most n characters without splitting a rune
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Send publishes the notification. Failures wrap ErrNotificationFailure.
func (s *Sink) Send(ctx context.Context, username, subject, body string) error {
	if s.topicARN == "" {
		return fmt.Errorf("%w: no topic configured", domain.ErrNotificationFailure)
	}

	fullSubject, message := Format(username, subject, body, s.now())
	out, err := s.client.Publish(ctx, &awssns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(fullSubject),
		Message:  aws.String(message),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", domain.ErrNotificationFailure, err)
		}
		return fmt.Errorf("%w: publish to %s: %v", domain.ErrNotificationFailure, s.topicARN, err)
	}

	s.log.Debug().
		Str("username", username).
		Str("subject", fullSubject).
		Str("message_id", aws.ToString(out.MessageId)).
		Msg("Notification published")
	return nil
}
