package shim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/twistlock/lambdashim/internal/config"
	"github.com/twistlock/lambdashim/internal/engine"
	"github.com/twistlock/lambdashim/internal/invocation"
	"github.com/twistlock/lambdashim/pkg/handler"
)

type mockChecker struct {
	block bool
	calls int
}

func (m *mockChecker) CheckRequest(event, ctx []byte) bool {
	m.calls++
	return m.block
}

type mockReporter struct {
	calls int
}

func (m *mockReporter) Report(context.Context, []byte, invocation.Context) error {
	m.calls++
	return nil
}

type greeting struct {
	Name string `json:"name"`
}

func greet(ctx context.Context, g greeting) (string, error) {
	if g.Name == "" {
		return "", errors.New("no name")
	}
	return "hello " + g.Name, nil
}

// layerRoot returns a directory laid out like an extracted layer
func layerRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	p := filepath.Join(root, engine.ModulePath)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("could not make module dir: %v", err)
	}
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatalf("could not write module file: %v", err)
	}
	return root
}

func newShim(t *testing.T, chk *mockChecker, rep *mockReporter) *Shim {
	t.Helper()

	t.Setenv(config.TaskRootVar, t.TempDir())
	t.Setenv(config.LayerRootVar, layerRoot(t))
	t.Setenv(config.HandlerVar, "greeter/api.Greet")
	t.Setenv(config.CustomResponseVar, `{"statusCode":403}`)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("could not load config: %v", err)
	}

	reg := handler.NewRegistry()
	reg.Register("greeter/api", "Greet", greet)

	log, _ := logtest.NewNullLogger()
	s, err := New(cfg,
		WithOpener(func(string) (engine.Module, error) { return chk, nil }),
		WithRegistry(reg),
		WithReporter(rep),
		WithLogger(log),
	)
	if err != nil {
		t.Fatalf("could not start shim: %v", err)
	}
	return s
}

func TestInvoke(t *testing.T) {

	tt := []struct {
		name    string
		block   bool
		payload string
		want    string
		err     string
		reports int
	}{
		{name: "allow", payload: `{"name":"alice"}`, want: `"hello alice"`},
		{name: "allow_error", payload: `{}`, err: "no name"},
		{name: "block", block: true, payload: `{"name":"<script>"}`, want: `{"statusCode":403}`, reports: 1},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {

			chk := &mockChecker{block: tc.block}
			rep := &mockReporter{}
			s := newShim(t, chk, rep)

			if !strings.HasSuffix(s.EnginePath(), engine.ModulePath) {
				t.Errorf("unexpected engine path: %v", s.EnginePath())
			}

			ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
				AwsRequestID:       "abc",
				InvokedFunctionArn: "arn:xyz",
			})

			out, err := s.Invoke(ctx, []byte(tc.payload))
			if tc.err != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.err)
				}
				if msg := err.Error(); !strings.Contains(msg, tc.err) {
					t.Errorf("expected error %q, got: %q", tc.err, msg)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := strings.TrimSpace(string(out)); tc.err == "" && got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
			if chk.calls != 1 {
				t.Errorf("expected one check, got %v", chk.calls)
			}
			if rep.calls != tc.reports {
				t.Errorf("expected %v reports, got %v", tc.reports, rep.calls)
			}
		})
	}
}

func TestNew(t *testing.T) {

	tt := []struct {
		name     string
		spec     string
		noModule bool
		openErr  error
		err      string
		errType  interface{}
	}{
		{name: "no_module", spec: "greeter/api.Greet", noModule: true, err: "failed to find native inspection module"},
		{name: "bad_module", spec: "greeter/api.Greet", openErr: errors.New("missing symbol check_request"), err: "missing symbol check_request"},
		{name: "no_spec", spec: "", err: "must provide ORIGINAL_HANDLER", errType: new(*handler.ConfigurationError)},
		{name: "bad_spec", spec: "Greet", err: "wrong handler format", errType: new(*handler.ConfigurationError)},
		{name: "unknown_module", spec: "billing.Greet", err: "failed to import module", errType: new(*handler.ResolutionError)},
		{name: "unknown_name", spec: "greeter/api.Wave", err: "no handler Wave", errType: new(*handler.ResolutionError)},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {

			root := t.TempDir()
			if !tc.noModule {
				root = layerRoot(t)
			}
			cfg := &config.Config{LayerRoot: root, HandlerSpec: tc.spec}

			reg := handler.NewRegistry()
			reg.Register("greeter/api", "Greet", greet)

			opened := false
			log, _ := logtest.NewNullLogger()
			_, err := New(cfg,
				WithOpener(func(string) (engine.Module, error) {
					opened = true
					return &mockChecker{}, tc.openErr
				}),
				WithRegistry(reg),
				WithLogger(log),
			)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tc.err)
			}
			if msg := err.Error(); !strings.Contains(msg, tc.err) {
				t.Errorf("expected error %q, got: %q", tc.err, msg)
			}
			if tc.errType != nil && !errors.As(err, tc.errType) {
				t.Errorf("expected error of type %T, got %T", tc.errType, err)
			}
			if tc.noModule && opened {
				t.Error("expected no module to be opened")
			}
		})
	}
}
