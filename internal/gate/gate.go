// Package gate asks the inspection engine about each invocation and either
// blocks it or hands it to the protected handler.
package gate

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"github.com/twistlock/lambdashim/internal/invocation"
)

// nullResponse is returned for a block without a usable custom response
var nullResponse = []byte("null")

// Checker returns true when a request must be blocked
type Checker interface {
	CheckRequest(event, ctx []byte) bool
}

// Fallback returns the response for blocked requests, nil when there is none
type Fallback func() json.RawMessage

// Reporter records a blocked request
type Reporter interface {
	Report(ctx context.Context, event []byte, nc invocation.Context) error
}

// Gate is the per invocation decision point
type Gate struct {
	chk      Checker
	fallback Fallback
	reporter Reporter
	log      logrus.FieldLogger
}

// NewGate returns a new Gate. fallback, reporter and log may be nil.
func NewGate(c Checker, f Fallback, r Reporter, log logrus.FieldLogger) *Gate {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gate{chk: c, fallback: f, reporter: r, log: log}
}

// Invoke checks event and calls downstream only if the engine allows it
func (g *Gate) Invoke(ctx context.Context, event []byte, downstream lambda.Handler) ([]byte, error) {

	nc, err := invocation.Normalize(ctx)
	if err != nil {
		return nil, err
	}

	jc, err := nc.Marshal()
	if err != nil {
		return nil, err
	}

	log := g.log.WithFields(logrus.Fields{
		"request_id":   nc.AwsRequestID,
		"function_arn": nc.InvokedFunctionArn,
	})

	if !g.chk.CheckRequest(encode(event), jc) {
		log.Debug("request allowed")
		return downstream.Invoke(ctx, event)
	}

	log.Warn("request blocked")
	if g.reporter != nil {
		if err := g.reporter.Report(ctx, event, nc); err != nil {
			log.WithError(err).Error("failed to report block")
		}
	}

	return g.response(), nil
}

// response never fails; a broken custom response degrades to null
func (g *Gate) response() []byte {
	if g.fallback == nil {
		return nullResponse
	}
	r := g.fallback()
	if len(r) == 0 {
		return nullResponse
	}
	return []byte(r)
}

// encode compacts a JSON payload, anything else goes through as is
func encode(event []byte) []byte {
	var b bytes.Buffer
	if err := json.Compact(&b, event); err != nil {
		return event
	}
	return b.Bytes()
}
