package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events/test"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/twistlock/lambdashim/internal/invocation"
)

type mockSQS struct {
	sqsiface.SQSAPI
	err  error
	sent []*sqs.SendMessageInput
}

func (ms *mockSQS) SendMessageWithContext(_ aws.Context, in *sqs.SendMessageInput, _ ...request.Option) (*sqs.SendMessageOutput, error) {
	ms.sent = append(ms.sent, in)
	if ms.err != nil {
		return nil, ms.err
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestReport(t *testing.T) {

	at := time.Date(2020, 10, 22, 9, 30, 0, 0, time.UTC)
	nc := invocation.Context{AwsRequestID: "req-1", InvokedFunctionArn: "arn:aws:lambda:eu-west-2:123456789012:function:orders"}

	tt := []struct {
		name  string
		event string
		want  Block
		err   string
		sqs   error
	}{
		{
			name:  "rest",
			event: "testdata/apigw_rest.json",
			want:  Block{RequestID: "req-1", FunctionArn: nc.InvokedFunctionArn, SourceIP: "203.0.113.10", Path: "/orders", Time: at},
		},
		{
			name:  "http",
			event: "testdata/apigw_http.json",
			want:  Block{RequestID: "req-1", FunctionArn: nc.InvokedFunctionArn, SourceIP: "198.51.100.7", Path: "/orders/abc-123", Time: at},
		},
		{
			name: "opaque",
			want: Block{RequestID: "req-1", FunctionArn: nc.InvokedFunctionArn, Time: at},
		},
		{name: "unhappy", sqs: errors.New("queue does not exist"), err: "queue does not exist"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {

			event := []byte(`[1,2,3]`)
			if tc.event != "" {
				event = test.ReadJSONFromFile(t, tc.event)
			}

			ms := &mockSQS{err: tc.sqs}
			r := NewReporter(ms, "https://sqs.eu-west-2.amazonaws.com/123456789012/blocks")
			r.now = func() time.Time { return at }

			err := r.Report(context.Background(), event, nc)
			if tc.err != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.err)
				}
				if msg := err.Error(); !strings.Contains(msg, tc.err) {
					t.Errorf("expected error %q, got: %q", tc.err, msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(ms.sent) != 1 {
				t.Fatalf("expected one message, got %v", len(ms.sent))
			}
			if q := aws.StringValue(ms.sent[0].QueueUrl); !strings.HasSuffix(q, "/blocks") {
				t.Errorf("wrong queue: %v", q)
			}

			var got Block
			if err := json.Unmarshal([]byte(aws.StringValue(ms.sent[0].MessageBody)), &got); err != nil {
				t.Fatalf("could not unmarshal message: %v", err)
			}
			if got.DecisionID == "" {
				t.Error("expected a decision id")
			}
			if diff := cmp.Diff(tc.want, got, cmpopts.IgnoreFields(Block{}, "DecisionID")); diff != "" {
				t.Errorf("unexpected message (-want +got):\n%s", diff)
			}
		})
	}
}
