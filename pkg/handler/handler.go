// Package handler resolves the ORIGINAL_HANDLER spec to a Go Lambda handler.
//
// Functions are registered under a module locator, usually from an init func
// in the package that defines them:
//
//	func init() {
//		handler.Register("orders/api", "Create", Create)
//	}
//
// and selected at cold start with ORIGINAL_HANDLER=orders/api.Create.
package handler

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"
)

// EnvVar holds the spec of the handler being protected
const EnvVar = "ORIGINAL_HANDLER"

// Spec is a parsed handler reference
type Spec struct {
	Module string
	Name   string
}

func (s Spec) String() string {
	return s.Module + "." + s.Name
}

// Parse splits spec on its last dot. Path separators in the module part become dots.
func Parse(spec string) (Spec, error) {
	if spec == "" {
		return Spec{}, &ConfigurationError{Msg: "must provide " + EnvVar + " environment variable"}
	}

	i := strings.LastIndex(spec, ".")
	if i < 0 {
		return Spec{}, &ConfigurationError{Spec: spec, Msg: "wrong handler format"}
	}
	s := Spec{Module: normalize(spec[:i]), Name: spec[i+1:]}
	if s.Module == "" || s.Name == "" {
		return Spec{}, &ConfigurationError{Spec: spec, Msg: "wrong handler format"}
	}
	return s, nil
}

// FromEnv returns the spec set in ORIGINAL_HANDLER
func FromEnv() (string, error) {
	spec, ok := os.LookupEnv(EnvVar)
	if !ok || spec == "" {
		return "", &ConfigurationError{Msg: "must provide " + EnvVar + " environment variable"}
	}
	return spec, nil
}

func normalize(module string) string {
	return strings.ReplaceAll(module, "/", ".")
}

// Registry maps module locators to their exported handlers
type Registry struct {
	mu      sync.RWMutex
	modules map[string]map[string]interface{}
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]interface{})}
}

// DefaultRegistry is used by Register and Resolve
var DefaultRegistry = NewRegistry()

// Register adds fn to DefaultRegistry
func Register(module, name string, fn interface{}) {
	DefaultRegistry.Register(module, name, fn)
}

// Resolve looks spec up in DefaultRegistry
func Resolve(spec string) (lambda.Handler, error) {
	return DefaultRegistry.Resolve(spec)
}

// Register records fn as module.name. fn is a lambda.Handler or any function
// lambda.Start accepts. Registering the same name twice panics.
func (r *Registry) Register(module, name string, fn interface{}) {
	module = normalize(module)
	if module == "" || name == "" || strings.Contains(name, ".") {
		panic(fmt.Sprintf("handler: invalid registration %q.%q", module, name))
	}
	if fn == nil {
		panic("handler: nil handler for " + module + "." + name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.modules[module]
	if !ok {
		members = make(map[string]interface{})
		r.modules[module] = members
	}
	if _, dup := members[name]; dup {
		panic("handler: multiple registrations for " + module + "." + name)
	}
	members[name] = fn
}

// Resolve parses spec and returns the registered handler
func (r *Registry) Resolve(spec string) (lambda.Handler, error) {
	s, err := Parse(spec)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	members, ok := r.modules[s.Module]
	var fn interface{}
	if ok {
		fn, ok = members[s.Name]
	}
	r.mu.RUnlock()

	if members == nil {
		return nil, &ResolutionError{Module: s.Module}
	}
	if !ok {
		return nil, &ResolutionError{Module: s.Module, Name: s.Name}
	}

	if h, ok := fn.(lambda.Handler); ok {
		return h, nil
	}
	if err := validate(reflect.TypeOf(fn)); err != nil {
		return nil, &ResolutionError{Module: s.Module, Name: s.Name, Err: err}
	}
	return lambda.NewHandler(fn), nil
}

// validate applies the signature rules lambda.NewHandler enforces on first invoke
func validate(t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return fmt.Errorf("handler kind %s is not %s", t.Kind(), reflect.Func)
	}

	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()
	errType := reflect.TypeOf((*error)(nil)).Elem()

	switch n := t.NumIn(); {
	case n > 2:
		return fmt.Errorf("handlers may not take more than two arguments, but handler takes %d", n)
	case n == 2:
		if !t.In(0).Implements(ctxType) {
			return fmt.Errorf("handler takes two arguments, but the first is not Context. got %s", t.In(0).Kind())
		}
	}

	switch n := t.NumOut(); {
	case n > 2:
		return fmt.Errorf("handler may not return more than two values")
	case n == 2:
		if !t.Out(1).Implements(errType) {
			return fmt.Errorf("handler returns two values, but the second does not implement error")
		}
	case n == 1:
		if !t.Out(0).Implements(errType) {
			return fmt.Errorf("handler returns a single value, but it does not implement error")
		}
	}
	return nil
}
