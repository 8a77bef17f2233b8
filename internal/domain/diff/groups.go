package diff

import "github.com/alchemorsel/recipediff/internal/domain/recipe"

// Group is a diffed ingredient group
type Group struct {
	Name  Text
	Items []Text
}

// Groups diffs two lists of ingredient groups with the greedy alignment
func Groups(oldGroups, newGroups []recipe.IngredientGroup) []Group {
	return AlignGreedy.Groups(oldGroups, newGroups)
}

// Groups diffs two lists of ingredient groups. Groups are matched by
// name; when several old groups share a name the last one wins. A new
// group without a match is entirely added, and old groups without a
// match are dropped. The result follows the order of newGroups.
func (a Alignment) Groups(oldGroups, newGroups []recipe.IngredientGroup) []Group {
	byName := make(map[string][]string, len(oldGroups))
	for _, g := range oldGroups {
		byName[g.GroupName] = g.Items
	}

	result := make([]Group, 0, len(newGroups))
	for _, g := range newGroups {
		oldItems, matched := byName[g.GroupName]

		name := AddedText(g.GroupName)
		if matched {
			name = Words(g.GroupName, g.GroupName)
		}

		result = append(result, Group{
			Name:  name,
			Items: a.List(oldItems, g.Items),
		})
	}
	return result
}
