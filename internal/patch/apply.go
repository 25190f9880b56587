package patch

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Apply applies ops in order to a decoded JSON tree (the result of
// json.Unmarshal into interface{}) and returns the updated tree. The input
// tree is modified in place where possible; callers that need the original
// should pass a copy. Patches are pure data: applying one never re-runs the
// handler that produced it.
func Apply(doc interface{}, ops []Op) (interface{}, error) {
	var err error
	for i := range ops {
		doc, err = applyOne(doc, ops[i])
		if err != nil {
			return nil, fmt.Errorf("op %d (%s %s): %w", i, ops[i].Op, ops[i].Path, err)
		}
	}
	return doc, nil
}

func applyOne(doc interface{}, op Op) (interface{}, error) {
	switch op.Op {
	case OpAdd, OpRemove, OpReplace:
	default:
		return nil, fmt.Errorf("unsupported op %q", op.Op)
	}

	var value interface{}
	if op.Op != OpRemove {
		if err := json.Unmarshal(op.Value, &value); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
	}

	tokens, err := splitPointer(op.Path)
	if err != nil {
		return nil, err
	}
	return applyAt(doc, tokens, op.Op, value)
}

func applyAt(node interface{}, tokens []string, op string, value interface{}) (interface{}, error) {
	if len(tokens) == 0 {
		if op == OpRemove {
			return nil, nil
		}
		return value, nil
	}

	token := tokens[0]
	switch n := node.(type) {
	case map[string]interface{}:
		if len(tokens) == 1 {
			switch op {
			case OpRemove:
				if _, ok := n[token]; !ok {
					return nil, fmt.Errorf("key %q not found", token)
				}
				delete(n, token)
			default:
				n[token] = value
			}
			return n, nil
		}
		child, ok := n[token]
		if !ok {
			return nil, fmt.Errorf("key %q not found", token)
		}
		newChild, err := applyAt(child, tokens[1:], op, value)
		if err != nil {
			return nil, err
		}
		n[token] = newChild
		return n, nil

	case []interface{}:
		if token == "-" {
			if op != OpAdd || len(tokens) != 1 {
				return nil, fmt.Errorf("%q only valid as final token of an add", "-")
			}
			return append(n, value), nil
		}
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid array index %q", token)
		}
		if len(tokens) == 1 {
			switch op {
			case OpAdd:
				if idx > len(n) {
					return nil, fmt.Errorf("index %d out of range (len %d)", idx, len(n))
				}
				n = append(n, nil)
				copy(n[idx+1:], n[idx:])
				n[idx] = value
				return n, nil
			case OpRemove:
				if idx >= len(n) {
					return nil, fmt.Errorf("index %d out of range (len %d)", idx, len(n))
				}
				return append(n[:idx], n[idx+1:]...), nil
			default:
				if idx >= len(n) {
					return nil, fmt.Errorf("index %d out of range (len %d)", idx, len(n))
				}
				n[idx] = value
				return n, nil
			}
		}
		if idx >= len(n) {
			return nil, fmt.Errorf("index %d out of range (len %d)", idx, len(n))
		}
		newChild, err := applyAt(n[idx], tokens[1:], op, value)
		if err != nil {
			return nil, err
		}
		n[idx] = newChild
		return n, nil

	default:
		return nil, fmt.Errorf("cannot descend into %T with token %q", node, token)
	}
}

func splitPointer(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if path[0] != '/' {
		return nil, fmt.Errorf("pointer %q must start with /", path)
	}
	raw := strings.Split(path[1:], "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = unescapeKey(t)
	}
	return tokens, nil
}
