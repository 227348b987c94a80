package output

import (
	"context"
	"reflect"
)

// ApplyLimit truncates slice data to the --result-limit in ctx. Other values
// are returned unchanged.
func ApplyLimit(ctx context.Context, data interface{}) interface{} {
	limit := LimitFromContext(ctx)
	if limit == 0 || data == nil {
		return data
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return data
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice || v.Len() <= limit {
		return data
	}
	return v.Slice(0, limit).Interface()
}
