package errors

import (
	goerrors "errors"
	"reflect"
	"strings"
)

// Classify reduces an error to a stable, tag-safe type name. The chain
// is unwrapped to the innermost error first so wrapper types do not
// mask the real cause.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	for {
		inner := goerrors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(t.String())
	name = strings.NewReplacer("*", "", ".", "_").Replace(name)
	if name == "" {
		return "unknown"
	}
	return name
}
