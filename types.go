package propgrid

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// PropertyType describes the values a property may hold. Implementations are
// immutable and may be shared by any number of properties.
type PropertyType interface {
	IsReadOnly() bool
	CheckValue(v any) bool
	DefaultValue() any
}

// ValueConverter is implemented by types that normalize accepted values into a
// canonical representation, e.g. every Go integer kind into int64.
type ValueConverter interface {
	ConvertValue(v any) any
}

// ValueParser is implemented by types that can read a value from text input.
type ValueParser interface {
	ParseValue(text string) (any, error)
}

// ComposedPropertyType is the type of a composite that carries its own value.
// SplitToSubvalues breaks such a value into entries keyed by child name.
type ComposedPropertyType interface {
	PropertyType
	SplitToSubvalues(v any) map[string]any
}

// IsComposedType reports whether t may type a composite.
func IsComposedType(t PropertyType) bool {
	_, ok := t.(ComposedPropertyType)
	return ok
}

// acceptValue validates v against t and returns its canonical form.
func acceptValue(t PropertyType, v any) (any, bool) {
	if !t.CheckValue(v) {
		return nil, false
	}
	if c, ok := t.(ValueConverter); ok {
		return c.ConvertValue(v), true
	}
	return v, true
}

// ParseValue reads text through t when it implements ValueParser, otherwise
// the text itself is offered as the value.
func ParseValue(t PropertyType, text string) (any, error) {
	if p, ok := t.(ValueParser); ok {
		return p.ParseValue(text)
	}
	return text, nil
}

// ============================================================================
// String
// ============================================================================

// StringType accepts strings, and nil when Nullable.
type StringType struct {
	Nullable bool
}

func (t StringType) IsReadOnly() bool { return false }

func (t StringType) CheckValue(v any) bool {
	if v == nil {
		return t.Nullable
	}
	_, ok := v.(string)
	return ok
}

func (t StringType) DefaultValue() any {
	if t.Nullable {
		return nil
	}
	return ""
}

func (t StringType) ParseValue(text string) (any, error) {
	return text, nil
}

// ============================================================================
// Boolean
// ============================================================================

type BooleanType struct{}

func (BooleanType) IsReadOnly() bool { return false }

func (BooleanType) CheckValue(v any) bool {
	_, ok := v.(bool)
	return ok
}

func (BooleanType) DefaultValue() any { return false }

func (BooleanType) ParseValue(text string) (any, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return nil, NewPropertyError(ErrorTypeInvalidValue, ErrCodeValueRejected,
			fmt.Sprintf("parsing %q to a boolean value failed", text)).WithCause(err)
	}
	return b, nil
}

// ============================================================================
// Integer
// ============================================================================

// IntegerType accepts any Go integer kind, or a float holding an integral
// value as decoded documents produce, within [Min, Max]. Accepted values are
// stored as int64.
type IntegerType struct {
	Min      int64
	Max      int64
	Nullable bool
}

// NewIntegerType returns an integer type over [minValue, maxValue].
func NewIntegerType(minValue, maxValue int64, nullable bool) (*IntegerType, error) {
	if minValue > maxValue {
		return nil, &ConfigError{Field: "minValue", Message: "must not be greater than maxValue"}
	}
	return &IntegerType{Min: minValue, Max: maxValue, Nullable: nullable}, nil
}

func (t *IntegerType) IsReadOnly() bool { return false }

func (t *IntegerType) CheckValue(v any) bool {
	if v == nil {
		return t.Nullable
	}
	n, ok := toInt64(v)
	return ok && n >= t.Min && n <= t.Max
}

func (t *IntegerType) ConvertValue(v any) any {
	if v == nil {
		return nil
	}
	n, _ := toInt64(v)
	return n
}

func (t *IntegerType) DefaultValue() any {
	if t.Nullable {
		return nil
	}
	if t.Min <= 0 && 0 <= t.Max {
		return int64(0)
	}
	return t.Min
}

func (t *IntegerType) ParseValue(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		if t.Nullable {
			return nil, nil
		}
		return nil, NewPropertyError(ErrorTypeInvalidValue, ErrCodeValueRejected, "empty value is not allowed")
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, NewPropertyError(ErrorTypeInvalidValue, ErrCodeValueRejected,
			fmt.Sprintf("parsing %q to an integer value failed", text)).WithCause(err)
	}
	if n < t.Min || n > t.Max {
		return nil, NewPropertyError(ErrorTypeInvalidValue, ErrCodeValueRejected,
			fmt.Sprintf("%d is outside the range [%d, %d]", n, t.Min, t.Max))
	}
	return n, nil
}

func toInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// ============================================================================
// Decimal
// ============================================================================

// DecimalType accepts integer and floating point kinds within [Min, Max];
// accepted values are stored as float64.
type DecimalType struct {
	Min      float64
	Max      float64
	Nullable bool
}

// NewDecimalType returns a decimal type over [minValue, maxValue].
func NewDecimalType(minValue, maxValue float64, nullable bool) (*DecimalType, error) {
	if math.IsNaN(minValue) || math.IsNaN(maxValue) || minValue > maxValue {
		return nil, &ConfigError{Field: "minValue", Message: "must not be greater than maxValue"}
	}
	return &DecimalType{Min: minValue, Max: maxValue, Nullable: nullable}, nil
}

func (t *DecimalType) IsReadOnly() bool { return false }

func (t *DecimalType) CheckValue(v any) bool {
	if v == nil {
		return t.Nullable
	}
	f, ok := toFloat64(v)
	return ok && !math.IsNaN(f) && f >= t.Min && f <= t.Max
}

func (t *DecimalType) ConvertValue(v any) any {
	if v == nil {
		return nil
	}
	f, _ := toFloat64(v)
	return f
}

func (t *DecimalType) DefaultValue() any {
	if t.Nullable {
		return nil
	}
	if t.Min <= 0 && 0 <= t.Max {
		return float64(0)
	}
	return t.Min
}

func (t *DecimalType) ParseValue(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		if t.Nullable {
			return nil, nil
		}
		return nil, NewPropertyError(ErrorTypeInvalidValue, ErrCodeValueRejected, "empty value is not allowed")
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || !t.CheckValue(f) {
		return nil, NewPropertyError(ErrorTypeInvalidValue, ErrCodeValueRejected,
			fmt.Sprintf("parsing %q to a decimal value in the range [%g, %g] failed", text, t.Min, t.Max)).WithCause(err)
	}
	return f, nil
}

func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	default:
		return 0, false
	}
}

// ============================================================================
// Enumeration
// ============================================================================

// EnumItem is one choice of an EnumerationType.
type EnumItem struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// EnumerationType accepts only the values of its items. Numeric values match
// across Go kinds, so int64(1) selects an item declared as 1; accepted values
// are stored as the item's declared value. Items keep their declaration order
// for editors.
type EnumerationType struct {
	items []EnumItem
}

// NewEnumerationType returns an enumeration over items. An empty item list and
// duplicate values are rejected.
func NewEnumerationType(items ...EnumItem) (*EnumerationType, error) {
	if len(items) == 0 {
		return nil, &ConfigError{Field: "items", Message: "must not be empty"}
	}
	for i := range items {
		for j := 0; j < i; j++ {
			if reflect.DeepEqual(enumKey(items[i].Value), enumKey(items[j].Value)) {
				return nil, &ConfigError{Field: "items", Message: fmt.Sprintf("duplicate value %v", items[i].Value)}
			}
		}
	}
	return &EnumerationType{items: append([]EnumItem(nil), items...)}, nil
}

func (t *EnumerationType) IsReadOnly() bool { return false }

func (t *EnumerationType) CheckValue(v any) bool {
	return t.indexOf(v) >= 0
}

func (t *EnumerationType) ConvertValue(v any) any {
	if i := t.indexOf(v); i >= 0 {
		return t.items[i].Value
	}
	return v
}

func (t *EnumerationType) DefaultValue() any {
	return t.items[0].Value
}

// Items returns a copy of the items in declaration order.
func (t *EnumerationType) Items() []EnumItem {
	return append([]EnumItem(nil), t.items...)
}

// LabelOf returns the label of the item holding v.
func (t *EnumerationType) LabelOf(v any) (string, bool) {
	i := t.indexOf(v)
	if i < 0 {
		return "", false
	}
	return t.items[i].Label, true
}

// ParseValue matches text against item values first, then labels.
func (t *EnumerationType) ParseValue(text string) (any, error) {
	for _, it := range t.items {
		if fmt.Sprint(it.Value) == text {
			return it.Value, nil
		}
	}
	for _, it := range t.items {
		if it.Label == text {
			return it.Value, nil
		}
	}
	return nil, NewPropertyError(ErrorTypeInvalidValue, ErrCodeValueRejected,
		fmt.Sprintf("%q is not one of the enumeration items", text))
}

func (t *EnumerationType) indexOf(v any) int {
	key := enumKey(v)
	for i, it := range t.items {
		if reflect.DeepEqual(enumKey(it.Value), key) {
			return i
		}
	}
	return -1
}

// enumKey canonicalizes numbers the way IntegerType and DecimalType do:
// integral values become int64, other numbers float64.
func enumKey(v any) any {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		if n, ok := toInt64(v); ok {
			return n
		}
		if f, ok := toFloat64(v); ok {
			return f
		}
	}
	return v
}

// ============================================================================
// Read-only wrapper
// ============================================================================

// ReadOnlyType wraps Base and reports itself read-only. Properties of such a
// type can never be made editable.
type ReadOnlyType struct {
	Base PropertyType
}

func (t ReadOnlyType) IsReadOnly() bool      { return true }
func (t ReadOnlyType) CheckValue(v any) bool { return t.Base.CheckValue(v) }
func (t ReadOnlyType) DefaultValue() any     { return t.Base.DefaultValue() }

func (t ReadOnlyType) ConvertValue(v any) any {
	if c, ok := t.Base.(ValueConverter); ok {
		return c.ConvertValue(v)
	}
	return v
}

type readOnlyComposedType struct {
	ReadOnlyType
	composed ComposedPropertyType
}

func (t readOnlyComposedType) SplitToSubvalues(v any) map[string]any {
	return t.composed.SplitToSubvalues(v)
}

// ReadOnly wraps t so that it reports IsReadOnly. Composed types stay composed.
func ReadOnly(t PropertyType) PropertyType {
	if c, ok := t.(ComposedPropertyType); ok {
		return readOnlyComposedType{ReadOnlyType: ReadOnlyType{Base: t}, composed: c}
	}
	return ReadOnlyType{Base: t}
}
