package document

import (
	"encoding/json"
	"fmt"
)

// DeepMerge merges src into dst key by key. When both sides hold an object
// at the same key the merge recurses; otherwise the src value replaces the
// dst value, so arrays and primitives are swapped wholesale. dst is
// modified in place and returned.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, sv := range src {
		sm, srcIsObj := sv.(map[string]any)
		dm, dstIsObj := dst[k].(map[string]any)
		if srcIsObj && dstIsObj {
			dst[k] = DeepMerge(dm, sm)
			continue
		}
		if srcIsObj {
			dst[k] = DeepMerge(nil, sm)
			continue
		}
		dst[k] = sv
	}
	return dst
}

// mergeJSON returns a fresh copy of v with partial merged into its JSON
// form. v itself is left untouched.
func mergeJSON[T any](v *T, partial map[string]any) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	merged, err := json.Marshal(DeepMerge(tree, partial))
	if err != nil {
		return nil, fmt.Errorf("encode merged: %w", err)
	}
	out := new(T)
	if err := json.Unmarshal(merged, out); err != nil {
		return nil, fmt.Errorf("decode merged: %w", err)
	}
	return out, nil
}
