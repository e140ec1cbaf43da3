// Package invocation reduces the Lambda invocation context to the record the inspection module reads.
package invocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// ErrNoLambdaContext means the runtime did not attach invocation metadata
var ErrNoLambdaContext = errors.New("no lambda context in invocation")

// Context is the serializable part of a Lambda context
type Context struct {
	AwsRequestID       string
	InvokedFunctionArn string
}

// Normalize extracts the request id and invoked ARN from ctx
func Normalize(ctx context.Context) (Context, error) {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok || lc == nil {
		return Context{}, ErrNoLambdaContext
	}
	return Context{
		AwsRequestID:       lc.AwsRequestID,
		InvokedFunctionArn: lc.InvokedFunctionArn,
	}, nil
}

// Marshal returns the JSON the inspection module expects
func (c Context) Marshal() ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %v", err)
	}
	return b, nil
}
