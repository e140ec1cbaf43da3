// Package report publishes blocked invocations to SQS.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/twistlock/lambdashim/internal/invocation"
)

// Messenger is an abstraction for a SQS client
type Messenger interface {
	SendMessageWithContext(aws.Context, *sqs.SendMessageInput, ...request.Option) (*sqs.SendMessageOutput, error)
}

// Block is the message sent for a blocked invocation
type Block struct {
	DecisionID  string    `json:"decision_id"`
	RequestID   string    `json:"request_id"`
	FunctionArn string    `json:"function_arn"`
	SourceIP    string    `json:"source_ip,omitempty"`
	Path        string    `json:"path,omitempty"`
	Time        time.Time `json:"time"`
}

// API Gateway REST and HTTP payloads keep these in different places
var (
	sourceIPFields = []string{"requestContext.identity.sourceIp", "requestContext.http.sourceIp"}
	pathFields     = []string{"path", "rawPath", "requestContext.http.path"}
)

// Reporter sends Block messages to a queue
type Reporter struct {
	sqs   Messenger
	queue string
	now   func() time.Time
}

// NewReporter returns a new Reporter
func NewReporter(m Messenger, queueURL string) *Reporter {
	return &Reporter{sqs: m, queue: queueURL, now: time.Now}
}

// NewBlock describes a blocked event
func NewBlock(event []byte, nc invocation.Context, at time.Time) Block {
	return Block{
		DecisionID:  uuid.New().String(),
		RequestID:   nc.AwsRequestID,
		FunctionArn: nc.InvokedFunctionArn,
		SourceIP:    first(event, sourceIPFields),
		Path:        first(event, pathFields),
		Time:        at.UTC(),
	}
}

func first(event []byte, fields []string) string {
	for _, f := range fields {
		if v := gjson.GetBytes(event, f); v.Exists() {
			return v.String()
		}
	}
	return ""
}

// Report publishes a blocked event
func (r *Reporter) Report(ctx context.Context, event []byte, nc invocation.Context) error {

	b := NewBlock(event, nc, r.now())

	m, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal SQS payload: %v", err)
	}

	in := sqs.SendMessageInput{
		MessageBody: aws.String(string(m)),
		QueueUrl:    aws.String(r.queue),
	}

	_, err = r.sqs.SendMessageWithContext(ctx, &in)
	if err != nil {
		return fmt.Errorf("failed to publish block %s: %v", b.DecisionID, err)
	}

	return nil
}
