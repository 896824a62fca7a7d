// Package reflection holds small reflect helpers shared by the SDK packages.
package reflection

import "reflect"

// TypeName returns the package-qualified name of t, looking through pointers.
// Unnamed types yield their literal form, e.g. "map[string]int".
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	t = Indirect(t)

	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// ShortTypeName returns the type name without the package path.
func ShortTypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	t = Indirect(t)

	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// Indirect strips every level of pointer from t.
func Indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
