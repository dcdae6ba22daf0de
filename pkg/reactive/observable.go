package reactive

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrUnknownKey is returned when writing a key the observable does not have.
	ErrUnknownKey = errors.New("reactive: unknown key")
	// ErrReadOnly is returned when writing an accessor without a setter or an
	// unaddressable field.
	ErrReadOnly = errors.New("reactive: read-only")
	// ErrType is returned when a written value cannot be stored in the target.
	ErrType = errors.New("reactive: incompatible value")
)

var timeType = reflect.TypeOf(time.Time{})

// Accessor exposes a named value through functions instead of a field.
// Component classes mirror their getters and setters into data this way.
type Accessor struct {
	Name string
	Get  func() any
	Set  func(any)
}

// Mirrorable is implemented by values that expose accessors of their own.
// Promoting such a value makes its accessors visible next to its fields.
type Mirrorable interface {
	Accessors() []Accessor
}

// Observable is the host-visible view of a map, slice, struct or mirrored
// value. Writes go through Set and tick the shared Counter. Nested values are
// wrapped on first access and owned by their parent, so cyclic data never
// causes unbounded work.
type Observable struct {
	counter   *Counter
	raw       any
	source    reflect.Value
	accessors map[string]Accessor
	order     []string // accessor names in declaration order

	mu       sync.Mutex
	children map[string]child
}

type child struct {
	identity uintptr
	node     *Observable
}

// Promotable reports whether Promote would wrap v.
func Promotable(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(*Observable); ok {
		return true
	}
	if _, ok := v.(Mirrorable); ok {
		return true
	}
	return promotableValue(reflect.ValueOf(v))
}

func promotableValue(rv reflect.Value) bool {
	rv = indirect(rv)
	if !rv.IsValid() || rv.Type() == timeType {
		return false
	}
	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

// Promote wraps v in an Observable ticking c on writes. Values that cannot be
// observed (nil, scalars, time.Time) yield nil. An Observable is returned as
// is.
func Promote(v any, c *Counter) *Observable {
	if o, ok := v.(*Observable); ok {
		return o
	}
	if !Promotable(v) {
		return nil
	}
	var accessors []Accessor
	if m, ok := v.(Mirrorable); ok {
		accessors = m.Accessors()
	}
	return newObservable(v, c, accessors)
}

// Mirror wraps v like Promote and layers the given accessors over its
// fields. A field wins over an accessor with the same name.
func Mirror(v any, c *Counter, accessors ...Accessor) *Observable {
	if m, ok := v.(Mirrorable); ok {
		accessors = append(m.Accessors(), accessors...)
	}
	return newObservable(v, c, accessors)
}

func newObservable(v any, c *Counter, accessors []Accessor) *Observable {
	o := &Observable{
		counter:   c,
		raw:       v,
		accessors: make(map[string]Accessor, len(accessors)),
	}
	if rv := indirect(reflect.ValueOf(v)); rv.IsValid() && rv.Type() != timeType {
		o.source = rv
	}
	for _, a := range accessors {
		if a.Name == "" || a.Get == nil {
			continue
		}
		if o.hasField(a.Name) {
			continue
		}
		if _, dup := o.accessors[a.Name]; !dup {
			o.order = append(o.order, a.Name)
		}
		o.accessors[a.Name] = a
	}
	return o
}

// Value returns the wrapped value.
func (o *Observable) Value() any {
	return o.raw
}

// Unwrap returns the value wrapped by v when v is an Observable and v
// otherwise. Setters receiving coerced props use it to get plain data back.
func Unwrap(v any) any {
	if o, ok := v.(*Observable); ok && o != nil {
		return o.raw
	}
	return v
}

// Counter returns the counter ticked by writes.
func (o *Observable) Counter() *Counter {
	return o.counter
}

// Len is the number of keys.
func (o *Observable) Len() int {
	return len(o.Keys())
}

// Keys lists the observable keys: sorted map keys, slice indices, or exported
// field names followed by accessor names.
func (o *Observable) Keys() []string {
	var keys []string
	switch o.kind() {
	case reflect.Map:
		for _, k := range o.source.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
	case reflect.Slice, reflect.Array:
		for i := 0; i < o.source.Len(); i++ {
			keys = append(keys, strconv.Itoa(i))
		}
	case reflect.Struct:
		t := o.source.Type()
		for i := 0; i < t.NumField(); i++ {
			if name, ok := fieldName(t.Field(i)); ok {
				keys = append(keys, name)
			}
		}
	}
	return append(keys, o.order...)
}

// Get returns the raw value stored under key.
func (o *Observable) Get(key string) (any, bool) {
	if fv, ok := o.lookup(key); ok {
		if !fv.IsValid() {
			return nil, true
		}
		return fv.Interface(), true
	}
	if a, ok := o.accessors[key]; ok {
		return a.Get(), true
	}
	return nil, false
}

// Child returns the nested observable under key, or nil when the value there
// is not observable. The same node is returned while the underlying value
// keeps its identity; it then tracks the current value, so a slice grown or
// truncated within its backing array reports its new length.
func (o *Observable) Child(key string) *Observable {
	v, ok := o.Get(key)
	if !ok || !Promotable(v) {
		return nil
	}
	id := identity(v)

	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.children[key]; ok && id != 0 && c.identity == id {
		c.node.refresh(v)
		return c.node
	}
	node := Promote(v, o.counter)
	if o.children == nil {
		o.children = make(map[string]child)
	}
	o.children[key] = child{identity: id, node: node}
	return node
}

// refresh points o at the current value v of the same identity.
func (o *Observable) refresh(v any) {
	if _, ok := v.(*Observable); ok {
		return
	}
	o.raw = v
	if rv := indirect(reflect.ValueOf(v)); rv.IsValid() && rv.Type() != timeType {
		o.source = rv
	}
}

// Path walks nested children along keys.
func (o *Observable) Path(keys ...string) *Observable {
	node := o
	for _, k := range keys {
		if node == nil {
			return nil
		}
		node = node.Child(k)
	}
	return node
}

// Set stores v under key and ticks the counter.
func (o *Observable) Set(key string, v any) error {
	if err := o.set(key, v); err != nil {
		return err
	}
	o.mu.Lock()
	delete(o.children, key)
	o.mu.Unlock()
	if o.counter != nil {
		o.counter.Tick()
	}
	return nil
}

func (o *Observable) set(key string, v any) error {
	switch o.kind() {
	case reflect.Map:
		val, err := assignable(v, o.source.Type().Elem())
		if err != nil {
			return fmt.Errorf("%w: %s", err, key)
		}
		if o.source.IsNil() {
			return fmt.Errorf("%w: nil map", ErrReadOnly)
		}
		o.source.SetMapIndex(reflect.ValueOf(key).Convert(o.source.Type().Key()), val)
		return nil
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= o.source.Len() {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		elem := o.source.Index(i)
		if !elem.CanSet() {
			return fmt.Errorf("%w: %s", ErrReadOnly, key)
		}
		val, err := assignable(v, elem.Type())
		if err != nil {
			return fmt.Errorf("%w: %s", err, key)
		}
		elem.Set(val)
		return nil
	case reflect.Struct:
		if fv, ok := o.lookup(key); ok {
			if !fv.CanSet() {
				return fmt.Errorf("%w: %s", ErrReadOnly, key)
			}
			val, err := assignable(v, fv.Type())
			if err != nil {
				return fmt.Errorf("%w: %s", err, key)
			}
			fv.Set(val)
			return nil
		}
	}
	a, ok := o.accessors[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if a.Set == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, key)
	}
	a.Set(v)
	return nil
}

// Snapshot copies the observable into plain maps and slices. Values already
// being copied higher up the tree are replaced with nil.
func (o *Observable) Snapshot() any {
	return o.snapshot(map[*Observable]bool{}, map[uintptr]bool{})
}

func (o *Observable) snapshot(active map[*Observable]bool, ids map[uintptr]bool) any {
	id := identity(o.raw)
	if active[o] || (id != 0 && ids[id]) {
		return nil
	}
	active[o] = true
	if id != 0 {
		ids[id] = true
	}
	defer func() {
		delete(active, o)
		if id != 0 {
			delete(ids, id)
		}
	}()

	keys := o.Keys()
	if k := o.kind(); k == reflect.Slice || k == reflect.Array {
		out := make([]any, 0, len(keys))
		for _, key := range keys {
			out = append(out, o.snapshotValue(key, active, ids))
		}
		return out
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = o.snapshotValue(key, active, ids)
	}
	return out
}

func (o *Observable) snapshotValue(key string, active map[*Observable]bool, ids map[uintptr]bool) any {
	if c := o.Child(key); c != nil {
		return c.snapshot(active, ids)
	}
	v, _ := o.Get(key)
	return v
}

func (o *Observable) kind() reflect.Kind {
	if !o.source.IsValid() {
		return reflect.Invalid
	}
	return o.source.Kind()
}

func (o *Observable) hasField(name string) bool {
	if o.kind() != reflect.Struct {
		return false
	}
	_, ok := o.lookup(name)
	return ok
}

// lookup finds a map entry, slice element or struct field by key.
func (o *Observable) lookup(key string) (reflect.Value, bool) {
	switch o.kind() {
	case reflect.Map:
		mv := o.source.MapIndex(reflect.ValueOf(key).Convert(o.source.Type().Key()))
		if !mv.IsValid() {
			return reflect.Value{}, false
		}
		return mv, true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= o.source.Len() {
			return reflect.Value{}, false
		}
		return o.source.Index(i), true
	case reflect.Struct:
		t := o.source.Type()
		for i := 0; i < t.NumField(); i++ {
			if name, ok := fieldName(t.Field(i)); ok && name == key {
				return o.source.Field(i), true
			}
		}
	}
	return reflect.Value{}, false
}

// fieldName is the key an exported field is visible under: its json tag
// name when present, the Go name otherwise.
func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag != "" {
		return tag, true
	}
	return f.Name, true
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// identity returns a stable address for reference values and 0 otherwise.
func identity(v any) uintptr {
	if v == nil {
		return 0
	}
	if o, ok := v.(*Observable); ok {
		return reflect.ValueOf(o).Pointer()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return 0
		}
		return rv.Pointer()
	}
	return 0
}

// assignable converts v for storage in a value of type t. Numeric values are
// converted between numeric kinds when no information is lost; anything else
// must be assignable.
func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if numeric(rv.Kind()) && numeric(t.Kind()) && fits(rv, t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, ErrType
}

// fits reports whether the numeric value rv converts to t exactly: integers
// stay in range, floats stored in integers are whole, and unsigned targets
// never receive negatives.
func fits(rv reflect.Value, t reflect.Type) bool {
	target := reflect.Zero(t)
	switch {
	case isInt(t.Kind()):
		switch {
		case isInt(rv.Kind()):
			return !target.OverflowInt(rv.Int())
		case isUint(rv.Kind()):
			u := rv.Uint()
			return u <= math.MaxInt64 && !target.OverflowInt(int64(u))
		default:
			f := rv.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= -math.MinInt64 {
				return false
			}
			return !target.OverflowInt(int64(f))
		}
	case isUint(t.Kind()):
		switch {
		case isInt(rv.Kind()):
			i := rv.Int()
			return i >= 0 && !target.OverflowUint(uint64(i))
		case isUint(rv.Kind()):
			return !target.OverflowUint(rv.Uint())
		default:
			f := rv.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return false
			}
			return !target.OverflowUint(uint64(f))
		}
	default:
		switch {
		case isInt(rv.Kind()):
			return !target.OverflowFloat(float64(rv.Int()))
		case isUint(rv.Kind()):
			return !target.OverflowFloat(float64(rv.Uint()))
		default:
			return !target.OverflowFloat(rv.Float())
		}
	}
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
