package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/twistlock/lambdashim/internal/config"
	"github.com/twistlock/lambdashim/internal/engine"
	"github.com/twistlock/lambdashim/internal/gate"
	"github.com/twistlock/lambdashim/pkg/handler"
	"github.com/twistlock/lambdashim/pkg/shim"
)

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Print the inspection module that would be loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			p, err := engine.Locate(cfg.Roots())
			if err != nil {
				return fmt.Errorf("%w in %v", err, cfg.Roots())
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [spec]",
		Short: "Split a handler spec into module and function",
		Long:  "Split a handler spec into module and function. Without an argument ORIGINAL_HANDLER is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec string
			if len(args) == 1 {
				spec = args[0]
			} else {
				var err error
				if spec, err = handler.FromEnv(); err != nil {
					return err
				}
			}

			s, err := handler.Parse(spec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "handler: %s\nmodule: %s\nfunction: %s\n", s, s.Module, s.Name)
			return nil
		},
	}
}

// passthrough stands in for the protected handler when checking events
type passthrough struct{}

func (passthrough) Invoke(_ context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

func newCheckCmd() *cobra.Command {
	var (
		eventFile string
		requestID string
		arn       string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ask the inspection module whether an event would be blocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			event, err := os.ReadFile(eventFile)
			if err != nil {
				return fmt.Errorf("failed to read event: %v", err)
			}

			e, err := engine.Load(cfg.Roots(), engine.Open)
			if err != nil {
				return err
			}

			if requestID == "" {
				requestID = uuid.New().String()
			}
			ctx := lambdacontext.NewContext(cmd.Context(), &lambdacontext.LambdaContext{
				AwsRequestID:       requestID,
				InvokedFunctionArn: arn,
			})

			log := shim.NewLogger(cfg.LogLevel)
			log.SetOutput(cmd.ErrOrStderr())

			blocked := true
			g := gate.NewGate(checkFunc(func(ev, c []byte) bool {
				blocked = e.CheckRequest(ev, c)
				return blocked
			}), cfg.CustomResponse, nil, log)

			out, err := g.Invoke(ctx, event, passthrough{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !blocked {
				fmt.Fprintln(w, "allow")
				return nil
			}
			fmt.Fprintf(w, "block\nresponse: %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventFile, "event", "e", "", "event JSON file")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request id (random when empty)")
	cmd.Flags().StringVar(&arn, "arn", "arn:aws:lambda:us-east-1:000000000000:function:twcheck", "invoked function ARN")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

// checkFunc adapts a function to gate.Checker
type checkFunc func(event, ctx []byte) bool

func (f checkFunc) CheckRequest(event, ctx []byte) bool {
	return f(event, ctx)
}
