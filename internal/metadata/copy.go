package metadata

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Sentinel errors returned (wrapped in *CopyError) by FromAny.
var (
	ErrCyclicValue      = errors.New("metadata: value contains a reference cycle")
	ErrNotTransmittable = errors.New("metadata: value has no JSON representation")
)

// CopyError reports where in a metadata tree a copy failed.
type CopyError struct {
	Path string
	Err  error
}

func (e *CopyError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s at %s", e.Err.Error(), e.Path)
}

func (e *CopyError) Unwrap() error {
	return e.Err
}

// IsCyclic reports whether err was caused by a self-referential value.
func IsCyclic(err error) bool {
	return errors.Is(err, ErrCyclicValue)
}

// IsNotTransmittable reports whether err was caused by a value with no JSON form.
func IsNotTransmittable(err error) bool {
	return errors.Is(err, ErrNotTransmittable)
}

var (
	regexpType  = reflect.TypeOf((*regexp.Regexp)(nil))
	timeType    = reflect.TypeOf(time.Time{})
	valueType   = reflect.TypeOf((*Value)(nil)).Elem()
	marshalType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textType    = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// FromMap deep-copies a map of editor metadata into an Object.
// A nil map yields nil.
func FromMap(m map[string]any) (Object, error) {
	if m == nil {
		return nil, nil
	}
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	return v.(Object), nil
}

// FromAny deep-copies an arbitrary Go value into a Value.
//
// Maps with string keys become Object, slices and arrays become Array,
// pointers and interfaces are followed, exported struct fields are copied
// using their json tag names. A container reached again while it is still
// being copied fails with ErrCyclicValue. Shared, non-cyclic references are
// copied twice.
func FromAny(v any) (Value, error) {
	c := copier{visiting: make(map[visitKey]struct{})}
	return c.copy(reflect.ValueOf(v), "$")
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type copier struct {
	visiting map[visitKey]struct{}
}

func (c *copier) fail(path string, err error) error {
	return &CopyError{Path: path, Err: err}
}

// enter marks a reference-typed value as being visited.
// The returned func must be called once the value is fully copied.
func (c *copier) enter(rv reflect.Value, path string) (func(), error) {
	var key visitKey
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return func() {}, nil
		}
		key = visitKey{ptr: rv.Pointer(), typ: rv.Type()}
	case reflect.Slice:
		if rv.Len() == 0 {
			return func() {}, nil
		}
		key = visitKey{ptr: rv.Pointer(), typ: rv.Type(), n: rv.Len()}
	default:
		return func() {}, nil
	}
	if _, seen := c.visiting[key]; seen {
		return nil, c.fail(path, ErrCyclicValue)
	}
	c.visiting[key] = struct{}{}
	return func() { delete(c.visiting, key) }, nil
}

func (c *copier) copy(rv reflect.Value, path string) (Value, error) {
	if !rv.IsValid() {
		return Null{}, nil
	}

	// Scalar Values are immutable and returned as is. Object and Array fall
	// through to the Map and Slice cases so they are copied under the same
	// cycle check as editor maps and slices.
	if rv.Type().Implements(valueType) {
		switch rv.Kind() {
		case reflect.Interface, reflect.Map, reflect.Slice:
		default:
			return rv.Interface().(Value), nil
		}
	}

	if rv.Type() == regexpType {
		return nil, c.fail(path, ErrNotTransmittable)
	}
	if rv.Type() == timeType {
		return String(rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano)), nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return c.copy(rv.Elem(), path)

	case reflect.Pointer:
		if rv.IsNil() {
			return Null{}, nil
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		return c.copy(rv.Elem(), path)

	case reflect.Bool:
		return Bool(rv.Bool()), nil

	case reflect.String:
		return String(rv.String()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Float(float64(u)), nil
		}
		return Int(int64(u)), nil

	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil

	case reflect.Slice:
		if rv.IsNil() {
			return Null{}, nil
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		return c.copyList(rv, path)

	case reflect.Array:
		return c.copyList(rv, path)

	case reflect.Map:
		if rv.IsNil() {
			return Null{}, nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return nil, c.fail(path, fmt.Errorf("%w: map key type %s", ErrNotTransmittable, rv.Type().Key()))
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()

		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		obj := make(Object, len(keys))
		for _, k := range keys {
			elem, err := c.copy(rv.MapIndex(k), path+"."+k.String())
			if err != nil {
				return nil, err
			}
			obj[k.String()] = elem
		}
		return obj, nil

	case reflect.Struct:
		if rv.Type().Implements(marshalType) || rv.Type().Implements(textType) {
			return c.viaJSON(rv, path)
		}
		return c.copyStruct(rv, path)

	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return nil, c.fail(path, fmt.Errorf("%w: %s", ErrNotTransmittable, rv.Kind()))

	default:
		return nil, c.fail(path, fmt.Errorf("%w: %s", ErrNotTransmittable, rv.Type()))
	}
}

func (c *copier) copyList(rv reflect.Value, path string) (Value, error) {
	arr := make(Array, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := c.copy(rv.Index(i), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		arr[i] = elem
	}
	return arr, nil
}

func (c *copier) copyStruct(rv reflect.Value, path string) (Value, error) {
	t := rv.Type()
	obj := make(Object, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		omitEmpty := false
		if tag, ok := f.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitEmpty = true
				}
			}
		}
		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		elem, err := c.copy(fv, path+"."+name)
		if err != nil {
			return nil, err
		}
		obj[name] = elem
	}
	return obj, nil
}

// viaJSON handles leaf types that define their own JSON encoding.
func (c *copier) viaJSON(rv reflect.Value, path string) (Value, error) {
	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return nil, c.fail(path, fmt.Errorf("%w: %v", ErrNotTransmittable, err))
	}
	v, err := ParseJSON(data)
	if err != nil {
		return nil, c.fail(path, fmt.Errorf("%w: %v", ErrNotTransmittable, err))
	}
	return v, nil
}
