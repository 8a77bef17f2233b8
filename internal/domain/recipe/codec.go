package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON keys modelled by Recipe. Everything else lands in Recipe.Extra.
const (
	keyTitle        = "title"
	keyDescription  = "description"
	keyPrepTime     = "prep_time"
	keyCookTime     = "cook_time"
	keyServings     = "servings"
	keyMacros       = "macros"
	keyIngredients  = "ingredients"
	keyInstructions = "instructions"
	keyNotes        = "notes"
)

var knownKeys = map[string]struct{}{
	keyTitle:        {},
	keyDescription:  {},
	keyPrepTime:     {},
	keyCookTime:     {},
	keyServings:     {},
	keyMacros:       {},
	keyIngredients:  {},
	keyInstructions: {},
	keyNotes:        {},
}

// Parse decodes a recipe document. A JSON null yields a nil recipe.
func Parse(data []byte) (*Recipe, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var r Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UnmarshalJSON decodes a recipe and fixes the shape of its ingredient
// list once, from the first element of the ingredients array.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}

	var out Recipe
	if fields == nil {
		*r = out
		return nil
	}

	textFields := map[string]*string{
		keyTitle:       &out.Title,
		keyDescription: &out.Description,
		keyPrepTime:    &out.PrepTime,
		keyCookTime:    &out.CookTime,
		keyServings:    &out.Servings,
	}
	for key, dst := range textFields {
		if raw, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("recipe %s: %w", key, err)
			}
		}
	}

	if raw, ok := fields[keyMacros]; ok && !isNull(raw) {
		out.Macros = &Macros{}
		if err := json.Unmarshal(raw, out.Macros); err != nil {
			return fmt.Errorf("recipe %s: %w", keyMacros, err)
		}
	}

	ingredients, err := decodeIngredients(fields[keyIngredients])
	if err != nil {
		return err
	}
	out.Ingredients = ingredients

	for key, dst := range map[string]*[]string{
		keyInstructions: &out.Instructions,
		keyNotes:        &out.Notes,
	} {
		if raw, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("recipe %s: %w", key, err)
			}
		}
	}

	for key, raw := range fields {
		if _, known := knownKeys[key]; known {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = raw
	}

	*r = out
	return nil
}

// MarshalJSON encodes the recipe with its extra keys merged back in.
// Keys are emitted in sorted order so equal recipes encode to equal bytes.
func (r Recipe) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+len(knownKeys))
	for key, raw := range r.Extra {
		out[key] = raw
	}

	out[keyTitle] = r.Title
	out[keyDescription] = r.Description
	out[keyPrepTime] = r.PrepTime
	out[keyCookTime] = r.CookTime
	out[keyServings] = r.Servings
	out[keyMacros] = r.Macros
	out[keyInstructions] = nonNil(r.Instructions)
	out[keyNotes] = nonNil(r.Notes)

	switch list := r.Ingredients.(type) {
	case FlatIngredients:
		out[keyIngredients] = nonNil(list)
	case GroupedIngredients:
		groups := make([]IngredientGroup, len(list))
		for i, g := range list {
			groups[i] = IngredientGroup{GroupName: g.GroupName, Items: nonNil(g.Items)}
		}
		out[keyIngredients] = groups
	default:
		out[keyIngredients] = []string{}
	}

	return json.Marshal(out)
}

func decodeIngredients(raw json.RawMessage) (IngredientList, error) {
	if len(bytes.TrimSpace(raw)) == 0 || isNull(raw) {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIngredients, err)
	}
	if len(elems) == 0 {
		return GroupedIngredients{}, nil
	}

	switch firstByte(elems[0]) {
	case '{':
		groups := make(GroupedIngredients, 0, len(elems))
		for _, elem := range elems {
			if firstByte(elem) != '{' {
				return nil, ErrInvalidIngredients
			}
			var group IngredientGroup
			if err := json.Unmarshal(elem, &group); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidIngredients, err)
			}
			groups = append(groups, group)
		}
		return groups, nil
	case '"':
		items := make(FlatIngredients, 0, len(elems))
		for _, elem := range elems {
			if firstByte(elem) != '"' {
				return nil, ErrInvalidIngredients
			}
			var item string
			if err := json.Unmarshal(elem, &item); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidIngredients, err)
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return nil, ErrInvalidIngredients
	}
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
