package ledger

import (
	"fmt"
	"reflect"
)

// DetectCircularRefs walks a decoded JSON graph (maps and slices only) and
// returns an error if any container reaches back to an ancestor by
// identity. Scalars cannot form cycles and are ignored.
func DetectCircularRefs(root any) error {
	return walk(root, nil, "$")
}

func walk(node any, ancestors []uintptr, path string) error {
	v := reflect.ValueOf(node)

	var id uintptr
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return nil
		}
		id = v.Pointer()
	default:
		return nil
	}

	for _, anc := range ancestors {
		if anc == id {
			return fmt.Errorf("circular reference at %s", path)
		}
	}
	ancestors = append(ancestors, id)

	switch v.Kind() {
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			if err := walk(iter.Value().Interface(), ancestors, path+"."+key); err != nil {
				return err
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err := walk(v.Index(i).Interface(), ancestors, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}

	return nil
}
