// Function protected serves an API Gateway handler behind the inspection engine.
// Deploy with ORIGINAL_HANDLER=protected/echo.Handle.
package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/twistlock/lambdashim/pkg/handler"
	"github.com/twistlock/lambdashim/pkg/shim"
)

func echo(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	lc, _ := lambdacontext.FromContext(ctx)
	res := events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       req.Body,
	}
	if lc != nil {
		res.Headers["X-Request-Id"] = lc.AwsRequestID
	}
	return res, nil
}

func main() {
	handler.Register("protected/echo", "Handle", echo)
	shim.Start()
}
