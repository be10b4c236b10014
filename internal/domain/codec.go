package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gorm.io/datatypes"
)

// EncodeVector stores an embedding as jsonb. The live ANN index owns the
// searchable copy; the column is the durable source it is rebuilt from.
func EncodeVector(v []float32) (datatypes.JSON, error) {
	if len(v) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func DecodeVector(raw datatypes.JSON) ([]float32, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []float32
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return out, nil
}

func EncodeStringList(values []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func DecodeStringList(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return out, nil
}

// DecodeAttrDoc parses a jsonb attribute document: a mapping of
// attribute name to a value or value-set. Scalar strings, numbers,
// booleans and mixed lists all normalize to string value-sets.
func DecodeAttrDoc(raw datatypes.JSON) (map[string][]string, error) {
	if len(raw) == 0 {
		return map[string][]string{}, nil
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode attribute document: %w", err)
	}
	out := make(map[string][]string, len(generic))
	for key, val := range generic {
		values, err := normalizeAttrValue(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		if len(values) > 0 {
			out[key] = values
		}
	}
	return out, nil
}

func EncodeAttrDoc(doc map[string][]string) (datatypes.JSON, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// mergeAttrSource folds one jsonb requirement column into an attribute
// document. A bare list lands under the implicit key ("material",
// "tool"); a map contributes its own keys.
func mergeAttrSource(doc map[string][]string, implicitKey string, raw datatypes.JSON) error {
	if len(raw) == 0 {
		return nil
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("decode %s requirements: %w", implicitKey, err)
	}
	switch v := generic.(type) {
	case nil:
		return nil
	case []any:
		values, err := normalizeAttrValue(v)
		if err != nil {
			return err
		}
		doc[implicitKey] = append(doc[implicitKey], values...)
	case map[string]any:
		for key, val := range v {
			values, err := normalizeAttrValue(val)
			if err != nil {
				return fmt.Errorf("attribute %q: %w", key, err)
			}
			doc[key] = append(doc[key], values...)
		}
	default:
		return fmt.Errorf("unsupported %s requirements shape %T", implicitKey, generic)
	}
	return nil
}

func normalizeAttrValue(val any) ([]string, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case bool:
		return []string{strconv.FormatBool(v)}, nil
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			nested, err := normalizeAttrValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
		return out, nil
	case map[string]any:
		// Object-shaped values (e.g. {"wood": {"grade": "a"}}) keep
		// only their keys as admissible values.
		out := make([]string, 0, len(v))
		for key := range v {
			out = append(out, key)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value %T", val)
	}
}
