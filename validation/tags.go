// Package validation parses the parameter tags that map struct fields onto
// HTTP request parts, and validates parameter structs before any network
// activity takes place.
//
// Supported tags:
//
//	param:"name[,encoded]"                          path placeholder {name}
//	host:"name[,encoded]"                           host placeholder {name}
//	query:"name[,encoded][,multi|csv|ssv|tsv|pipes]" query parameter
//	header:"name[,prefix]"                          header; map fields with prefix expand per entry
//	body:"media/type"                               request body
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ParamKind identifies the request part a field is bound to.
type ParamKind string

const (
	ParamPath   ParamKind = "path"
	ParamHost   ParamKind = "host"
	ParamQuery  ParamKind = "query"
	ParamHeader ParamKind = "header"
	ParamBody   ParamKind = "body"
)

// Collection separators for slice-valued query parameters
const (
	SeparatorCSV   = ","
	SeparatorSSV   = " "
	SeparatorTSV   = "\t"
	SeparatorPipes = "|"
)

const trueValue = "true"

// TagInfo represents parsed parameter tag information from a struct field
type TagInfo struct {
	Name        string            // Go field name
	Index       []int             // field index for reflect.Value.FieldByIndex
	Kind        ParamKind         // request part
	ParamName   string            // placeholder, query, or header name; header prefix when Prefix is set
	Encoded     bool              // value is already percent-encoded
	Multi       bool              // slice query values become repeated entries
	Separator   string            // join separator for slice query values when Multi is false
	Prefix      bool              // map header field expands into one header per entry
	MediaType   string            // body media type
	Required    bool              // from validate:"required" or implied for path/host params
	Constraints map[string]string // validation constraints from validate tag
}

// ParamSet is the parsed parameter layout of one struct type.
type ParamSet struct {
	Type   reflect.Type
	Fields []TagInfo
	Body   *TagInfo
}

// ByKind returns the fields bound to kind, in declaration order.
func (ps *ParamSet) ByKind(kind ParamKind) []TagInfo {
	var out []TagInfo
	for _, f := range ps.Fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

var paramCache sync.Map // map[reflect.Type]*ParamSet

// ParseParamTags extracts parameter metadata from a struct type. Results are
// cached per type. Fields without a parameter tag are ignored.
func ParseParamTags(t reflect.Type) (*ParamSet, error) {
	if t == nil {
		return nil, fmt.Errorf("validation: nil type")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("validation: parameters must be a struct, got %s", t.Kind())
	}

	if cached, ok := paramCache.Load(t); ok {
		return cached.(*ParamSet), nil
	}

	ps, err := parseStruct(t)
	if err != nil {
		return nil, err
	}

	actual, _ := paramCache.LoadOrStore(t, ps)
	return actual.(*ParamSet), nil
}

func parseStruct(t reflect.Type) (*ParamSet, error) {
	ps := &ParamSet{Type: t}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		info, ok, err := parseField(&field)
		if err != nil {
			return nil, fmt.Errorf("validation: field %s.%s: %w", t.Name(), field.Name, err)
		}
		if !ok {
			continue
		}

		if info.Kind == ParamBody {
			if ps.Body != nil {
				return nil, fmt.Errorf("validation: %s declares more than one body field (%s, %s)", t.Name(), ps.Body.Name, info.Name)
			}
			body := info
			ps.Body = &body
		}
		ps.Fields = append(ps.Fields, info)
	}

	return ps, nil
}

func parseField(field *reflect.StructField) (TagInfo, bool, error) {
	info := TagInfo{
		Name:        field.Name,
		Index:       field.Index,
		Constraints: make(map[string]string),
	}

	found := 0
	for _, kind := range []ParamKind{ParamPath, ParamHost, ParamQuery, ParamHeader, ParamBody} {
		raw, ok := field.Tag.Lookup(tagKey(kind))
		if !ok {
			continue
		}
		found++
		info.Kind = kind
		if err := applyTag(&info, field, raw); err != nil {
			return info, false, err
		}
	}

	if found == 0 {
		return info, false, nil
	}
	if found > 1 {
		return info, false, fmt.Errorf("multiple parameter tags")
	}

	if validate := field.Tag.Get("validate"); validate != "" {
		parseValidateTag(validate, info.Constraints)
	}
	info.Required = isFieldRequired(info.Constraints, info.Kind)

	return info, true, nil
}

func tagKey(kind ParamKind) string {
	if kind == ParamPath {
		return "param"
	}
	return string(kind)
}

func applyTag(info *TagInfo, field *reflect.StructField, raw string) error {
	parts := strings.Split(raw, ",")
	name := strings.TrimSpace(parts[0])

	if info.Kind == ParamBody {
		info.MediaType = name
		return nil
	}

	if name == "" {
		return fmt.Errorf("%s tag needs a name", info.Kind)
	}
	info.ParamName = name

	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "encoded":
			if info.Kind == ParamHeader {
				return fmt.Errorf("encoded is not supported on headers")
			}
			info.Encoded = true
		case "multi":
			info.Multi = true
		case "csv":
			info.Separator = SeparatorCSV
		case "ssv":
			info.Separator = SeparatorSSV
		case "tsv":
			info.Separator = SeparatorTSV
		case "pipes":
			info.Separator = SeparatorPipes
		case "prefix":
			if field.Type.Kind() != reflect.Map || field.Type.Key().Kind() != reflect.String {
				return fmt.Errorf("prefix requires a map with string keys")
			}
			info.Prefix = true
		case "":
		default:
			return fmt.Errorf("unknown tag option %q", opt)
		}
	}

	if (info.Multi || info.Separator != "") && info.Kind != ParamQuery {
		return fmt.Errorf("collection options only apply to query parameters")
	}
	if info.Prefix && info.Kind != ParamHeader {
		return fmt.Errorf("prefix only applies to header parameters")
	}
	if info.Kind == ParamHeader && field.Type.Kind() == reflect.Map && !info.Prefix {
		return fmt.Errorf("map header fields need the prefix option")
	}
	if info.Kind == ParamQuery && info.Separator == "" {
		info.Separator = SeparatorCSV
	}
	return nil
}

// parseValidateTag parses a validate tag into constraint map
func parseValidateTag(validate string, constraints map[string]string) {
	for _, part := range strings.Split(validate, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !strings.Contains(part, "=") {
			constraints[part] = trueValue
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		constraints[strings.TrimSpace(kv[0])] = strings.Trim(strings.TrimSpace(kv[1]), `"`)
	}
}

// isFieldRequired determines if a field is required. Path and host
// placeholders are always required since the URL cannot be built without them.
func isFieldRequired(constraints map[string]string, kind ParamKind) bool {
	if kind == ParamPath || kind == ParamHost {
		return true
	}
	if _, skip := constraints["omitempty"]; skip {
		return false
	}
	_, required := constraints["required"]
	return required
}
