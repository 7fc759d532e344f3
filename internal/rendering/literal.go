package rendering

import (
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Typst literal tokens.
const (
	NoneLiteral       = "none"
	TrueLiteral       = "true"
	FalseLiteral      = "false"
	EmptyArrayLiteral = "()"
	EmptyDictLiteral  = "(:)"
)

// Field is one key/value pair of an ordered Dict.
type Field struct {
	Key   string
	Value any
}

// Dict is a mapping that keeps its keys in insertion order when serialized.
// Keys are expected to be unique; Literal does not deduplicate them.
type Dict []Field

// LiteralValuer is implemented by types that know how to present themselves
// to the serializer. The returned value is serialized in their place.
type LiteralValuer interface {
	LiteralValue() any
}

// Literal converts v to Typst literal syntax.
//
// Strings become quoted literals, booleans and nil map to true/false/none,
// numbers to decimal text, slices and arrays to arrays, and Dict values or
// string-keyed maps to dictionaries. Unsupported kinds serialize to none so
// that one odd value never aborts a whole document.
func Literal(v any) string {
	var sb strings.Builder
	writeLiteral(&sb, v)
	return sb.String()
}

func writeLiteral(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		sb.WriteString(NoneLiteral)
	case LiteralValuer:
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Pointer && rv.IsNil() {
			sb.WriteString(NoneLiteral)
			return
		}
		writeLiteral(sb, val.LiteralValue())
	case string:
		sb.WriteString(QuoteString(val))
	case bool:
		writeBool(sb, val)
	case int:
		sb.WriteString(strconv.Itoa(val))
	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))
	case float64:
		writeFloat(sb, val, 64)
	case Dict:
		writeDict(sb, val)
	case []any:
		writeArray(sb, len(val), func(i int) any { return val[i] })
	case []string:
		writeArray(sb, len(val), func(i int) any { return val[i] })
	case map[string]any:
		writeMap(sb, reflect.ValueOf(val))
	default:
		writeReflect(sb, reflect.ValueOf(v))
	}
}

// writeReflect handles the kinds not covered by the fast paths above.
func writeReflect(sb *strings.Builder, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			sb.WriteString(NoneLiteral)
			return
		}
		writeLiteral(sb, rv.Elem().Interface())
	case reflect.String:
		sb.WriteString(QuoteString(rv.String()))
	case reflect.Bool:
		writeBool(sb, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sb.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		writeFloat(sb, rv.Float(), 32)
	case reflect.Float64:
		writeFloat(sb, rv.Float(), 64)
	case reflect.Slice:
		if rv.IsNil() {
			sb.WriteString(EmptyArrayLiteral)
			return
		}
		writeArray(sb, rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Array:
		writeArray(sb, rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			sb.WriteString(NoneLiteral)
			return
		}
		writeMap(sb, rv)
	default:
		sb.WriteString(NoneLiteral)
	}
}

func writeBool(sb *strings.Builder, b bool) {
	if b {
		sb.WriteString(TrueLiteral)
	} else {
		sb.WriteString(FalseLiteral)
	}
}

// writeFloat always emits a decimal point so the value stays a float in Typst.
func writeFloat(sb *strings.Builder, f float64, bitSize int) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		sb.WriteString(NoneLiteral)
		return
	}
	text := strconv.FormatFloat(f, 'f', -1, bitSize)
	if !strings.Contains(text, ".") {
		text += ".0"
	}
	sb.WriteString(text)
}

// writeArray emits (), (x,) or (a, b). The trailing comma keeps a
// one-element array from being parsed as a parenthesized expression.
func writeArray(sb *strings.Builder, n int, item func(int) any) {
	if n == 0 {
		sb.WriteString(EmptyArrayLiteral)
		return
	}
	sb.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeLiteral(sb, item(i))
	}
	if n == 1 {
		sb.WriteByte(',')
	}
	sb.WriteByte(')')
}

func writeDict(sb *strings.Builder, d Dict) {
	if len(d) == 0 {
		sb.WriteString(EmptyDictLiteral)
		return
	}
	sb.WriteByte('(')
	for i, f := range d {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeKey(sb, f.Key)
		sb.WriteString(": ")
		writeLiteral(sb, f.Value)
	}
	sb.WriteByte(')')
}

// writeMap serializes a string-keyed map with its keys sorted.
func writeMap(sb *strings.Builder, rv reflect.Value) {
	if rv.Len() == 0 {
		sb.WriteString(EmptyDictLiteral)
		return
	}
	keys := make([]string, 0, rv.Len())
	values := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		keys = append(keys, k)
		values[k] = iter.Value().Interface()
	}
	sort.Strings(keys)

	d := make(Dict, len(keys))
	for i, k := range keys {
		d[i] = Field{Key: k, Value: values[k]}
	}
	writeDict(sb, d)
}

// writeKey emits identifier-shaped keys bare and everything else quoted.
func writeKey(sb *strings.Builder, key string) {
	if isIdentifier(key) {
		sb.WriteString(key)
		return
	}
	sb.WriteString(QuoteString(key))
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}
