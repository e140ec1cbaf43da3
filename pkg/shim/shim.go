// Package shim is the Lambda entry point that protects the handler named in ORIGINAL_HANDLER.
//
// A protected function registers its handlers and hands main over to Start:
//
//	func main() {
//		handler.Register("orders/api", "Create", api.Create)
//		shim.Start()
//	}
package shim

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/sirupsen/logrus"

	"github.com/twistlock/lambdashim/internal/config"
	"github.com/twistlock/lambdashim/internal/engine"
	"github.com/twistlock/lambdashim/internal/gate"
	"github.com/twistlock/lambdashim/internal/report"
	"github.com/twistlock/lambdashim/pkg/handler"
)

// Shim wraps the resolved handler with the inspection engine
type Shim struct {
	gate    *gate.Gate
	handler lambda.Handler
	engine  *engine.Engine
	spec    string
}

type options struct {
	open     engine.Opener
	registry *handler.Registry
	reporter gate.Reporter
	log      *logrus.Logger
}

// Option customises New
type Option func(*options)

// WithOpener replaces the dlopen based module loader
func WithOpener(o engine.Opener) Option {
	return func(opts *options) { opts.open = o }
}

// WithRegistry resolves the handler from r instead of handler.DefaultRegistry
func WithRegistry(r *handler.Registry) Option {
	return func(opts *options) { opts.registry = r }
}

// WithReporter replaces the SQS block reporter
func WithReporter(r gate.Reporter) Option {
	return func(opts *options) { opts.reporter = r }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(opts *options) { opts.log = l }
}

// New loads the inspection engine and resolves the protected handler.
// Either failing is fatal; there is no partially started shim.
func New(cfg *config.Config, opts ...Option) (*Shim, error) {

	o := options{open: engine.Open, registry: handler.DefaultRegistry}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = NewLogger(cfg.LogLevel)
	}

	e, err := engine.Load(cfg.Roots(), o.open)
	if err != nil {
		return nil, fmt.Errorf("failed to find Twistlock runtime: %w", err)
	}

	h, err := o.registry.Resolve(cfg.HandlerSpec)
	if err != nil {
		return nil, err
	}

	rep := o.reporter
	if rep == nil && cfg.BlockQueueURL != "" {
		rep, err = newSQSReporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	o.log.WithFields(logrus.Fields{
		"engine_path": e.Path(),
		"handler":     cfg.HandlerSpec,
		"reporting":   rep != nil,
	}).Info("protection loaded")

	return &Shim{
		gate:    gate.NewGate(e, cfg.CustomResponse, rep, o.log),
		handler: h,
		engine:  e,
		spec:    cfg.HandlerSpec,
	}, nil
}

func newSQSReporter(cfg *config.Config) (*report.Reporter, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start AWS session: %v", err)
	}
	esqs := sqs.New(sess, &aws.Config{Region: aws.String(cfg.Region)})
	return report.NewReporter(esqs, cfg.BlockQueueURL), nil
}

// Invoke implements lambda.Handler
func (s *Shim) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	return s.gate.Invoke(ctx, payload, s.handler)
}

// EnginePath is the inspection module in use
func (s *Shim) EnginePath() string {
	return s.engine.Path()
}

// Start loads the environment, builds the shim and serves invocations.
// It does not return; startup failures exit the process.
func Start() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	log := NewLogger(cfg.LogLevel)
	s, err := New(cfg, WithLogger(log))
	if err != nil {
		log.WithError(err).Fatal("failed to start protected handler")
	}

	lambda.Start(s)
}
