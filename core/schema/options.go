package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Options is the type specific configuration of a field. Each field type
// accepts exactly one variant:
//
//	number                      NumberOptions
//	select, multi_select        ChoiceOptions
//	list                        ListOptions
//	everything else             NoOptions
type Options interface {
	isOptions()
}

// NoOptions is used by field types without configuration.
type NoOptions struct{}

// NumberOptions bounds a numeric field. Both bounds are inclusive.
type NumberOptions struct {
	Min  *float64 `json:"min,omitempty" mapstructure:"min"`
	Max  *float64 `json:"max,omitempty" mapstructure:"max"`
	Step *float64 `json:"step,omitempty" mapstructure:"step"` // presentation hint, not enforced
}

// ChoiceOptions lists the allowed values of a select or multi_select field.
// An empty list allows any string.
type ChoiceOptions struct {
	Choices []string `json:"choices,omitempty" mapstructure:"choices"`
}

// ItemType is the element type of a list field.
type ItemType string

const (
	ItemTypeText    ItemType = "text"
	ItemTypeNumber  ItemType = "number"
	ItemTypeBoolean ItemType = "boolean"
)

// Valid reports whether the item type is supported.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeText, ItemTypeNumber, ItemTypeBoolean:
		return true
	}
	return false
}

// ListOptions constrains a list field's element type and length.
type ListOptions struct {
	ItemType ItemType `json:"item_type,omitempty" mapstructure:"item_type"`
	MinItems *int     `json:"min_items,omitempty" mapstructure:"min_items"`
	MaxItems *int     `json:"max_items,omitempty" mapstructure:"max_items"`
}

// Item returns the configured item type, defaulting to text.
func (o ListOptions) Item() ItemType {
	if o.ItemType == "" {
		return ItemTypeText
	}
	return o.ItemType
}

func (NoOptions) isOptions()     {}
func (NumberOptions) isOptions() {}
func (ChoiceOptions) isOptions() {}
func (ListOptions) isOptions()   {}

// DecodeOptions converts a loose options bag into the variant for the given
// field type. Keys that are irrelevant to the type are ignored.
func DecodeOptions(ft FieldType, raw map[string]any) (Options, error) {
	switch ft {
	case FieldTypeNumber:
		var o NumberOptions
		if err := decodeInto(raw, &o); err != nil {
			return nil, err
		}
		return o, nil
	case FieldTypeSelect, FieldTypeMultiSelect:
		var o ChoiceOptions
		if err := decodeInto(raw, &o); err != nil {
			return nil, err
		}
		return o, nil
	case FieldTypeList:
		var o ListOptions
		if err := decodeInto(raw, &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return NoOptions{}, nil
	}
}

func decodeInto(raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "mapstructure",
		DecodeHook: wholeNumberHook,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// wholeNumberHook stops fractional numbers from being truncated into
// integer options such as min_items.
func wholeNumberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	if f, ok := ToNumber(data); ok && f != math.Trunc(f) {
		return nil, fmt.Errorf("%s is not a whole number", formatNumber(f))
	}
	return data, nil
}

// EncodeOptions converts an options variant back into a loose bag suitable
// for JSON storage. A nil Options encodes as an empty bag.
func EncodeOptions(o Options) (map[string]any, error) {
	out := map[string]any{}
	if o == nil {
		return out, nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// validateOptions checks that the options variant belongs to the field type
// and that its values are coherent.
func validateOptions(ft FieldType, o Options) error {
	switch opts := o.(type) {
	case nil, NoOptions:
		return nil
	case NumberOptions:
		if ft != FieldTypeNumber {
			return fmt.Errorf("number options are not valid for a %s field", ft)
		}
		if opts.Min != nil && opts.Max != nil && *opts.Min > *opts.Max {
			return fmt.Errorf("min must not be greater than max")
		}
	case ChoiceOptions:
		if ft != FieldTypeSelect && ft != FieldTypeMultiSelect {
			return fmt.Errorf("choice options are not valid for a %s field", ft)
		}
		seen := make(map[string]struct{}, len(opts.Choices))
		for _, c := range opts.Choices {
			if _, dup := seen[c]; dup {
				return fmt.Errorf("duplicate choice '%s'", c)
			}
			seen[c] = struct{}{}
		}
	case ListOptions:
		if ft != FieldTypeList {
			return fmt.Errorf("list options are not valid for a %s field", ft)
		}
		if opts.ItemType != "" && !opts.ItemType.Valid() {
			return fmt.Errorf("unknown item_type '%s'", opts.ItemType)
		}
		if opts.MinItems != nil && *opts.MinItems < 0 {
			return fmt.Errorf("min_items must not be negative")
		}
		if opts.MaxItems != nil && *opts.MaxItems < 0 {
			return fmt.Errorf("max_items must not be negative")
		}
		if opts.MinItems != nil && opts.MaxItems != nil && *opts.MinItems > *opts.MaxItems {
			return fmt.Errorf("min_items must not be greater than max_items")
		}
	default:
		return fmt.Errorf("unsupported options type %T", o)
	}
	return nil
}

func cloneOptions(o Options) Options {
	switch opts := o.(type) {
	case NumberOptions:
		return NumberOptions{Min: cloneFloat(opts.Min), Max: cloneFloat(opts.Max), Step: cloneFloat(opts.Step)}
	case ChoiceOptions:
		return ChoiceOptions{Choices: append([]string(nil), opts.Choices...)}
	case ListOptions:
		return ListOptions{ItemType: opts.ItemType, MinItems: cloneInt(opts.MinItems), MaxItems: cloneInt(opts.MaxItems)}
	case nil:
		return NoOptions{}
	default:
		return o
	}
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
