package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func testEvent() Event {
	return NewSummaryEvent(
		domain.Article{URL: "https://blog.example.com/post", Title: "Post"},
		domain.Summary{Text: "Short summary", KeyPoints: []string{"one"}},
		false,
	)
}

func TestAWSSQSSenderSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   client,
		log:      logger.NopLogger{},
	}

	if err := sender.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["article_url"]
	if !ok || aws.ToString(attr.StringValue) != "https://blog.example.com/post" {
		t.Fatalf("article_url attribute missing or wrong: %#v", attr)
	}
	if attr.DataType == nil || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if got := aws.ToString(client.input.MessageAttributes["event_type"].StringValue); got != EventArticleSummarized {
		t.Fatalf("event_type attribute = %q", got)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"summary":"Short summary"`) {
		t.Fatalf("MessageBody missing summary: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestAWSSQSSenderSendError(t *testing.T) {
	sender := &awsSQSSender{
		queueURL: "https://example.com/queue",
		client:   &fakeSQSClient{err: errors.New("boom")},
		log:      logger.NopLogger{},
	}

	if err := sender.Send(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected error from Send")
	}
}
