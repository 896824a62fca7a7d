// Package restproxy turns operation descriptors and tagged parameter structs
// into concrete requests, sends them through an httpclient pipeline, and
// shapes the response according to the operation's return kind.
//
// An operation is declared once:
//
//	var getSecret = restproxy.Define(restproxy.Operation{
//		Name:   "GetSecret",
//		Method: http.MethodGet,
//		Host:   "{vaultBaseUrl}",
//		Path:   "/secrets/{name}/{version}",
//		Return: restproxy.ReturnValue,
//	})
//
// and invoked with a parameter struct whose fields carry param, host, query,
// header and body tags (see package validation for the tag grammar):
//
//	secret, err := restproxy.Invoke[Secret](ctx, proxy, getSecret, &getSecretParams{...})
package restproxy

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// ReturnKind selects how a response is handed back to the caller.
type ReturnKind int

const (
	// ReturnValue buffers the body and decodes it into the result type.
	ReturnValue ReturnKind = iota
	// ReturnResponse buffers the body and wraps it with status and headers.
	ReturnResponse
	// ReturnHeaders is ReturnResponse plus headers decoded into a struct.
	ReturnHeaders
	// ReturnVoid drains and closes the body.
	ReturnVoid
	// ReturnStream hands back the response with its body unread.
	ReturnStream
	// ReturnExists maps a HEAD response to a boolean.
	ReturnExists
)

func (k ReturnKind) String() string {
	switch k {
	case ReturnValue:
		return "value"
	case ReturnResponse:
		return "response"
	case ReturnHeaders:
		return "headers"
	case ReturnVoid:
		return "void"
	case ReturnStream:
		return "stream"
	case ReturnExists:
		return "exists"
	default:
		return fmt.Sprintf("ReturnKind(%d)", int(k))
	}
}

// Operation describes one remote call.
type Operation struct {
	Name     string            // identifier used in logs and the registry
	Method   string            // HTTP verb
	Host     string            // optional host template; overrides the proxy endpoint
	Path     string            // path template with {placeholders}
	Headers  map[string]string // literal headers sent on every call
	Expected []int             // accepted status codes; empty accepts any 2xx
	Return   ReturnKind        // intended response shape, see below
	Tags     []string          // optional grouping tags
}

// Return is advisory. It documents the shape callers are expected to use and
// is exposed through the Registry, but the Invoke function chosen at the call
// site decides how the response is consumed.

// Validate checks the descriptor itself, independent of any parameters.
func (op *Operation) Validate() error {
	if strings.TrimSpace(op.Method) == "" {
		return fmt.Errorf("operation %q: method is required", op.Name)
	}
	if strings.Count(op.Path, "{") != strings.Count(op.Path, "}") {
		return fmt.Errorf("operation %q: unbalanced placeholders in path %q", op.Name, op.Path)
	}
	if strings.Count(op.Host, "{") != strings.Count(op.Host, "}") {
		return fmt.Errorf("operation %q: unbalanced placeholders in host %q", op.Name, op.Host)
	}
	return nil
}

// expects reports whether status is an accepted outcome.
func (op *Operation) expects(status int) bool {
	if len(op.Expected) == 0 {
		return status >= 200 && status < 300
	}
	return slices.Contains(op.Expected, status)
}

func (op *Operation) isHead() bool {
	return strings.EqualFold(op.Method, http.MethodHead)
}

// Registry keeps declared operations for introspection
type Registry struct {
	mu  sync.RWMutex
	ops []Operation
}

// DefaultRegistry receives operations passed to Define.
var DefaultRegistry = &Registry{}

// Define registers op in DefaultRegistry and returns it.
func Define(op Operation) Operation {
	DefaultRegistry.Register(op)
	return op
}

// Register adds an operation to the registry
func (r *Registry) Register(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, cloneOperation(&op))
}

// registerIfAbsent adds op unless an operation with the same name and
// method is already registered.
func (r *Registry) registerIfAbsent(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ops {
		if r.ops[i].Name == op.Name && strings.EqualFold(r.ops[i].Method, op.Method) {
			return
		}
	}
	r.ops = append(r.ops, cloneOperation(&op))
}

// Operations returns a copy of all registered operations
func (r *Registry) Operations() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Operation, len(r.ops))
	for i := range r.ops {
		result[i] = cloneOperation(&r.ops[i])
	}
	return result
}

// ByName returns the first operation registered under name
func (r *Registry) ByName(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.ops {
		if r.ops[i].Name == name {
			return cloneOperation(&r.ops[i]), true
		}
	}
	return Operation{}, false
}

// ByMethod filters operations by HTTP method
func (r *Registry) ByMethod(method string) []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Operation
	for i := range r.ops {
		if strings.EqualFold(r.ops[i].Method, method) {
			result = append(result, cloneOperation(&r.ops[i]))
		}
	}
	return result
}

// ByTag returns operations carrying tag
func (r *Registry) ByTag(tag string) []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Operation
	for i := range r.ops {
		if slices.Contains(r.ops[i].Tags, tag) {
			result = append(result, cloneOperation(&r.ops[i]))
		}
	}
	return result
}

// Count returns the number of registered operations
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

// Clear removes all registered operations (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

// cloneOperation deep-copies slice and map fields to prevent external mutation
func cloneOperation(op *Operation) Operation {
	out := *op
	if op.Expected != nil {
		out.Expected = slices.Clone(op.Expected)
	}
	if op.Tags != nil {
		out.Tags = slices.Clone(op.Tags)
	}
	if op.Headers != nil {
		out.Headers = make(map[string]string, len(op.Headers))
		for k, v := range op.Headers {
			out.Headers[k] = v
		}
	}
	return out
}
