// Package tree maps JSON-like values onto flat leaf rows and back.
//
// A value written at a path is stored as one row per scalar leaf. Objects
// and arrays are implied by their leaves; empty containers and nulls
// produce no rows, so they read back as absent.
package tree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/server/models"
)

const (
	Separator = "/"
	// forbidden characters in a path segment.
	forbidden = ".#$[]"
)

// ParsePath validates p and returns its canonical form without leading or
// trailing separators. Errors match common.ErrInvalidPath.
func ParsePath(p string) (string, error) {
	trimmed := strings.Trim(p, Separator)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", common.ErrInvalidPath)
	}
	for _, seg := range strings.Split(trimmed, Separator) {
		if err := validSegment(seg); err != nil {
			return "", fmt.Errorf("%w: %q: %v", common.ErrInvalidPath, p, err)
		}
	}
	return trimmed, nil
}

func validSegment(seg string) error {
	if seg == "" {
		return fmt.Errorf("empty segment")
	}
	if strings.ContainsAny(seg, forbidden) {
		return fmt.Errorf("segment %q contains one of %q", seg, forbidden)
	}
	for _, r := range seg {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("segment %q contains a control character", seg)
		}
	}
	return nil
}

// Join appends key to path.
func Join(path, key string) string {
	return path + Separator + key
}

// Ancestors returns the proper ancestors of path, shortest first.
func Ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == Separator[0] {
			out = append(out, path[:i])
		}
	}
	return out
}

// Related reports whether a change at one path is visible from the other:
// they are equal or one lies under the other.
func Related(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+Separator) || strings.HasPrefix(b, a+Separator)
}

// Flatten turns value (as produced by structpb.Value.AsInterface or
// encoding/json) into leaf rows under path.
func Flatten(path string, value any) ([]models.Node, error) {
	var out []models.Node
	if err := flatten(path, value, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(path string, value any, out *[]models.Node) error {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := validSegment(k); err != nil {
				return fmt.Errorf("%w: key %q: %v", common.ErrInvalidPath, k, err)
			}
			if err := flatten(Join(path, k), v[k], out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for i, item := range v {
			if err := flatten(Join(path, strconv.Itoa(i)), item, out); err != nil {
				return err
			}
		}
		return nil
	case string, bool, float64, int, int64, json.Number:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		*out = append(*out, models.Node{Path: path, Value: string(b)})
		return nil
	default:
		return fmt.Errorf("unsupported value type %T at %s", value, path)
	}
}

// Build rebuilds the value at base from its subtree rows. It returns nil
// when there are none. Objects whose keys are exactly 0..n-1 become arrays.
func Build(base string, nodes []models.Node) (any, error) {
	var root any
	for _, n := range nodes {
		var leaf any
		if err := json.Unmarshal([]byte(n.Value), &leaf); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Path, err)
		}

		if n.Path == base {
			if root == nil {
				root = leaf
			}
			continue
		}

		rel, ok := strings.CutPrefix(n.Path, base+Separator)
		if !ok {
			return nil, fmt.Errorf("node %s is outside %s", n.Path, base)
		}

		obj, isObj := root.(map[string]any)
		if !isObj {
			// Children win over a stale scalar at the same path.
			obj = map[string]any{}
			root = obj
		}
		insert(obj, strings.Split(rel, Separator), leaf)
	}
	return arrays(root), nil
}

func insert(obj map[string]any, segs []string, leaf any) {
	for _, seg := range segs[:len(segs)-1] {
		child, ok := obj[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			obj[seg] = child
		}
		obj = child
	}
	last := segs[len(segs)-1]
	if _, isObj := obj[last].(map[string]any); isObj {
		return
	}
	obj[last] = leaf
}

func arrays(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range obj {
		obj[k] = arrays(child)
	}

	list := make([]any, len(obj))
	for k, child := range obj {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(obj) || strconv.Itoa(i) != k {
			return obj
		}
		list[i] = child
	}
	return list
}
