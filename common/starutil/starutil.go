package starutil

import (
	"fmt"

	"go.starlark.net/starlark"
)

// ExtractStringSlice extracts a string slice out of the given starlark List. Throws an error if any list item is not a
// starlark String.
func ExtractStringSlice(list *starlark.List) ([]string, error) {
	if list == nil {
		return nil, nil
	}
	var r []string
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("got %v, want string", list.Index(i).Type())
		}
		r = append(r, s)
	}
	return r, nil
}

// ExtractStringDict extracts a map[string]string out of the given starlark Dict. Both keys and values must be starlark
// Strings.
func ExtractStringDict(dict *starlark.Dict) (map[string]string, error) {
	if dict == nil {
		return nil, nil
	}
	r := make(map[string]string, dict.Len())
	for _, item := range dict.Items() {
		k, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("got %v as dict key, want string", item[0].Type())
		}
		v, ok := starlark.AsString(item[1])
		if !ok {
			return nil, fmt.Errorf("got %v as dict value, want string", item[1].Type())
		}
		r[k] = v
	}
	return r, nil
}
