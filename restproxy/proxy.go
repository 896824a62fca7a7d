package restproxy

import (
	"encoding"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gaborage/go-bricks-sdk/httpclient"
	"github.com/gaborage/go-bricks-sdk/internal/reflection"
	"github.com/gaborage/go-bricks-sdk/logger"
	"github.com/gaborage/go-bricks-sdk/validation"
)

// Proxy builds and sends requests for operations against one endpoint.
type Proxy struct {
	sender    httpclient.Sender
	endpoint  string
	validator *validation.Validator
	registry  *Registry
	logger    logger.Logger
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithValidator replaces the parameter validator.
func WithValidator(v *validation.Validator) Option {
	return func(p *Proxy) {
		p.validator = v
	}
}

// WithRegistry records every invoked operation in r.
func WithRegistry(r *Registry) Option {
	return func(p *Proxy) {
		p.registry = r
	}
}

// WithLogger sets the logger used for request building diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(p *Proxy) {
		p.logger = l
	}
}

// New creates a proxy sending through pipeline. endpoint may be empty only
// when every operation carries a Host template.
func New(pipeline httpclient.Sender, endpoint string, opts ...Option) (*Proxy, error) {
	if pipeline == nil {
		return nil, httpclient.NewValidationError("pipeline cannot be nil", "pipeline")
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, httpclient.NewValidationError(fmt.Sprintf("endpoint %q is not an absolute URL", endpoint), "endpoint")
		}
	}

	p := &Proxy{
		sender:    pipeline,
		endpoint:  strings.TrimRight(endpoint, "/"),
		validator: validation.NewValidator(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Endpoint returns the base URL used for operations without a Host template.
func (p *Proxy) Endpoint() string {
	return p.endpoint
}

// BuildRequest resolves op and params into a request without sending it.
// Every argument problem is reported as an httpclient validation error.
func (p *Proxy) BuildRequest(op Operation, params any) (*httpclient.Request, error) {
	if err := op.Validate(); err != nil {
		return nil, httpclient.NewValidationError(err.Error(), "operation")
	}

	b, err := p.newBinding(params)
	if err != nil {
		return nil, err
	}

	base := p.endpoint
	if op.Host != "" {
		if base, err = expand(op.Host, b.placeholders(validation.ParamHost)); err != nil {
			return nil, err
		}
		base = strings.TrimRight(base, "/")
	}
	if base == "" {
		return nil, httpclient.NewValidationError("endpoint cannot be empty", "endpoint")
	}

	path, err := expand(op.Path, b.placeholders(validation.ParamPath))
	if err != nil {
		return nil, err
	}
	if path != "" && !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "?") {
		path = "/" + path
	}

	rawURL := base + path
	if query := b.query(); query != "" {
		if strings.Contains(rawURL, "?") {
			rawURL += "&" + query
		} else {
			rawURL += "?" + query
		}
	}

	header := make(http.Header)
	for k, v := range op.Headers {
		header.Set(k, v)
	}
	b.headers(header)

	body, err := b.body(header)
	if err != nil {
		return nil, err
	}

	req, err := httpclient.NewRequest(op.Method, rawURL, body)
	if err != nil {
		return nil, err
	}
	for k, values := range header {
		req.Header[k] = values
	}

	p.logger.Debug().
		Str("operation", op.Name).
		Str("params", b.typeName()).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("body_size", len(body)).
		Msg("REST proxy request built")

	return req, nil
}

// binding is a parameter struct paired with its parsed tag layout.
type binding struct {
	params *validation.ParamSet
	value  reflect.Value
}

func (p *Proxy) newBinding(params any) (*binding, error) {
	if params == nil {
		return &binding{}, nil
	}

	rv := reflect.ValueOf(params)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return &binding{}, nil
		}
		rv = rv.Elem()
	}

	set, err := validation.ParseParamTags(rv.Type())
	if err != nil {
		return nil, httpclient.NewValidationError(fmt.Sprintf("%s: %v", reflection.ShortTypeName(rv.Type()), err), "params")
	}

	if p.validator != nil {
		if err := p.validator.Validate(rv.Interface()); err != nil {
			field := ""
			var ve *validation.ValidationError
			if errors.As(err, &ve) && len(ve.Errors) > 0 {
				field = ve.Errors[0].Field
			}
			return nil, httpclient.NewValidationError(err.Error(), field)
		}
	}

	b := &binding{params: set, value: rv}
	if err := b.checkRequired(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *binding) typeName() string {
	if !b.value.IsValid() {
		return ""
	}
	return reflection.TypeName(b.value.Type())
}

func (b *binding) fields(kind validation.ParamKind) []validation.TagInfo {
	if b.params == nil {
		return nil
	}
	return b.params.ByKind(kind)
}

func (b *binding) field(info *validation.TagInfo) reflect.Value {
	return b.value.FieldByIndex(info.Index)
}

func (b *binding) checkRequired() error {
	for i := range b.params.Fields {
		info := &b.params.Fields[i]
		if info.Required && isEmpty(b.field(info)) {
			name := info.ParamName
			if info.Kind == validation.ParamBody {
				name = "body"
			}
			return httpclient.NewValidationError(
				fmt.Sprintf("%s parameter %s is required", info.Kind, name), name)
		}
	}
	return nil
}

// placeholders returns the escaped substitution for every bound placeholder.
func (b *binding) placeholders(kind validation.ParamKind) map[string]string {
	values := make(map[string]string)
	for _, info := range b.fields(kind) {
		v := deref(b.field(&info))
		if !v.IsValid() {
			continue
		}
		s := formatValue(v)
		if !info.Encoded {
			s = url.PathEscape(s)
		}
		values[info.ParamName] = s
	}
	return values
}

func (b *binding) query() string {
	var parts []string
	for _, info := range b.fields(validation.ParamQuery) {
		v := deref(b.field(&info))
		if !v.IsValid() || isEmpty(v) {
			continue
		}

		escape := url.QueryEscape
		if info.Encoded {
			escape = func(s string) string { return s }
		}
		name := url.QueryEscape(info.ParamName)

		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			parts = append(parts, name+"="+escape(formatValue(v)))
			continue
		}

		elems := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if elem := deref(v.Index(i)); elem.IsValid() {
				elems = append(elems, formatValue(elem))
			}
		}
		if info.Multi {
			for _, e := range elems {
				parts = append(parts, name+"="+escape(e))
			}
			continue
		}
		parts = append(parts, name+"="+escape(strings.Join(elems, info.Separator)))
	}
	return strings.Join(parts, "&")
}

func (b *binding) headers(header http.Header) {
	for _, info := range b.fields(validation.ParamHeader) {
		v := deref(b.field(&info))
		if !v.IsValid() || isEmpty(v) {
			continue
		}

		if info.Prefix {
			keys := make([]string, 0, v.Len())
			for _, k := range v.MapKeys() {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			for _, k := range keys {
				entry := deref(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())))
				if entry.IsValid() {
					header.Set(info.ParamName+k, formatValue(entry))
				}
			}
			continue
		}

		if v.Kind() == reflect.Slice {
			elems := make([]string, 0, v.Len())
			for i := 0; i < v.Len(); i++ {
				if elem := deref(v.Index(i)); elem.IsValid() {
					elems = append(elems, formatValue(elem))
				}
			}
			header.Set(info.ParamName, strings.Join(elems, ","))
			continue
		}
		header.Set(info.ParamName, formatValue(v))
	}
}

// body serializes the body parameter. An explicit Content-Type header wins
// over the media type declared on the body tag.
func (b *binding) body(header http.Header) ([]byte, error) {
	if b.params == nil || b.params.Body == nil {
		return nil, nil
	}
	v := b.field(b.params.Body)
	if isNil(v) {
		return nil, nil
	}

	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = b.params.Body.MediaType
	}
	if contentType == "" {
		contentType = MediaTypeJSON
	}

	data, err := CodecFor(contentType).Encode(v.Interface())
	if err != nil {
		return nil, httpclient.NewValidationError(fmt.Sprintf("failed to encode body as %s: %v", contentType, err), "body")
	}
	header.Set("Content-Type", contentType)
	return data, nil
}

// expand substitutes {name} placeholders in template.
func expand(template string, values map[string]string) (string, error) {
	var sb strings.Builder
	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return "", httpclient.NewValidationError(fmt.Sprintf("unterminated placeholder in %q", template), "template")
		}
		name := rest[start+1 : start+end]
		value, ok := values[name]
		if !ok || value == "" {
			return "", httpclient.NewValidationError(fmt.Sprintf("missing value for placeholder {%s}", name), name)
		}
		sb.WriteString(rest[:start])
		sb.WriteString(value)
		rest = rest[start+end+1:]
	}
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	stringerType      = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// formatValue renders a scalar parameter as text.
func formatValue(v reflect.Value) string {
	if v.Type() == timeType {
		return v.Interface().(time.Time).Format(time.RFC3339Nano)
	}
	if v.Type().Implements(textMarshalerType) {
		if text, err := v.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(text)
		}
	}
	if v.Type().Implements(stringerType) {
		return v.Interface().(fmt.Stringer).String()
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// deref follows pointers and interfaces; the result is invalid for nil.
func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return !v.IsValid()
}

// isEmpty treats nil references, empty strings and empty collections as
// absent. Numbers and booleans are always present.
func isEmpty(v reflect.Value) bool {
	v = deref(v)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	}
	return false
}
