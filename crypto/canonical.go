// Package crypto provides the engine's canonical serialization, hashing,
// and HMAC signing primitives. Canonical() is the single source of bytes
// used for both signing and hashing everywhere else in the module; any
// divergence here breaks signature portability across the whole system.
package crypto

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// errCyclicValue is returned by Canonical when v contains a map or slice
// that refers back to itself.
var errCyclicValue = fmt.Errorf("canonical: cyclic value")

// Canonical renders v as deterministic JSON: object keys sorted, array
// order preserved, no insignificant whitespace, cycles rejected.
func Canonical(v interface{}) (string, error) {
	if err := checkCycles(reflect.ValueOf(v), map[uintptr]bool{}); err != nil {
		return "", err
	}

	normalized, err := normalize(v)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("canonical: marshal failed: %w", err)
	}
	return string(data), nil
}

// checkCycles walks maps, slices, and pointers, tracking addresses
// currently on the recursion stack so a value reachable from itself is
// rejected instead of recursing forever.
func checkCycles(v reflect.Value, onStack map[uintptr]bool) error {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkCycles(v.Elem(), onStack)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if onStack[ptr] {
			return errCyclicValue
		}
		onStack[ptr] = true
		defer delete(onStack, ptr)
		for _, key := range v.MapKeys() {
			if err := checkCycles(v.MapIndex(key), onStack); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if onStack[ptr] {
			return errCyclicValue
		}
		onStack[ptr] = true
		defer delete(onStack, ptr)
		for i := 0; i < v.Len(); i++ {
			if err := checkCycles(v.Index(i), onStack); err != nil {
				return err
			}
		}
		return nil
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := checkCycles(v.Index(i), onStack); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Field(i).CanInterface() {
				continue
			}
			if err := checkCycles(v.Field(i), onStack); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// normalize converts v into a representation whose map keys marshal in
// sorted order. encoding/json already sorts map[string]interface{} keys,
// so the work here is recursing through arbitrary Go values (structs,
// typed maps) via a JSON round trip, then sorting every nested object.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal failed: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("canonical: unmarshal failed: %w", err)
	}
	return sortKeys(generic), nil
}

func sortKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortKeys(val[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sortKeys(item)
		}
		return out
	default:
		return val
	}
}
