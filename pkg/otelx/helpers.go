package otelx

import (
	"fmt"
	"reflect"
	"time"

	"github.com/ARUMANDESU/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/pkg/logging"
)

// Attribute keys shared by handlers, repos and adapters.
const (
	AttrEmail        = "email"
	AttrPurpose      = "verification.purpose"
	AttrVerification = "verification.id"
	AttrUserID       = "user.id"
	AttrSessionID    = "session.id"
	AttrProvider     = "oauth.provider"
)

func RecordSpanError(span trace.Span, err error, desc string) {
	if span == nil || err == nil {
		return
	}
	if desc == "" {
		desc = err.Error()
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, desc)
}

// EmailAttr returns the redacted email attribute. Raw addresses never reach traces.
func EmailAttr(email string) attribute.KeyValue {
	return attribute.String(AttrEmail, logging.RedactEmail(email))
}

// SetSpanAttrs sets attributes on a span from a map of key-value pairs.
// Named types fall back to their underlying kind, fmt.Stringer wins over reflection.
func SetSpanAttrs(span trace.Span, attrs map[string]any) {
	if span == nil || len(attrs) == 0 {
		return
	}

	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		if kv := toAttribute(key, value); kv.Valid() {
			kvs = append(kvs, kv)
		}
	}

	if len(kvs) > 0 {
		span.SetAttributes(kvs...)
	}
}

func toAttribute(key string, value any) attribute.KeyValue {
	value, isNil := validation.Indirect(value)
	if isNil {
		return attribute.String(key, "<nil>")
	}

	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case []int:
		return attribute.IntSlice(key, v)
	case []byte:
		return attribute.String(key, string(v))
	case time.Time:
		return attribute.String(key, v.Format(time.RFC3339Nano))
	case time.Duration:
		return attribute.String(key, v.String())
	case uuid.UUID:
		return attribute.String(key, v.String())
	case attribute.Value:
		return attribute.KeyValue{Key: attribute.Key(key), Value: v}
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return attribute.String(key, rv.String())
	case reflect.Bool:
		return attribute.Bool(key, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return attribute.Int64(key, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return attribute.Int64(key, int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return attribute.Float64(key, rv.Float())
	case reflect.Array:
		if rv.Len() == 16 && rv.Type().Elem().Kind() == reflect.Uint8 {
			var b [16]byte
			reflect.Copy(reflect.ValueOf(b[:]), rv)
			return attribute.String(key, uuid.UUID(b).String())
		}
	case reflect.Slice:
		strs := make([]string, rv.Len())
		for i := range rv.Len() {
			strs[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return attribute.StringSlice(key, strs)
	}

	return attribute.String(key, fmt.Sprintf("%+v", value))
}
