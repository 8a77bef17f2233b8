package diff

import "fmt"

// Alignment selects how list fields (ingredients, instructions, notes)
// are lined up before changed items are word-diffed.
type Alignment int

const (
	// AlignGreedy walks both lists with one item of lookahead. It finds
	// a single inserted or removed item per position and otherwise pairs
	// items up by position.
	AlignGreedy Alignment = iota
	// AlignLCS lines items up along their longest common subsequence and
	// pairs the unmatched runs between anchors by position.
	AlignLCS
)

// String returns the configuration name of the alignment
func (a Alignment) String() string {
	switch a {
	case AlignGreedy:
		return "greedy"
	case AlignLCS:
		return "lcs"
	default:
		return fmt.Sprintf("alignment(%d)", int(a))
	}
}

// ParseAlignment parses a configuration name. The empty string selects
// the greedy default.
func ParseAlignment(name string) (Alignment, error) {
	switch name {
	case "", "greedy":
		return AlignGreedy, nil
	case "lcs":
		return AlignLCS, nil
	default:
		return AlignGreedy, fmt.Errorf("unknown alignment %q", name)
	}
}

// List diffs two ordered lists of text items with the greedy alignment.
// The result has one entry per emitted item; removed items produce no
// entry. Absent lists are passed as nil.
func List(oldItems, newItems []string) []Text {
	return AlignGreedy.List(oldItems, newItems)
}

// List diffs two ordered lists of text items with this alignment
func (a Alignment) List(oldItems, newItems []string) []Text {
	if a == AlignLCS {
		return lcsList(oldItems, newItems)
	}
	return greedyList(oldItems, newItems)
}

func greedyList(oldItems, newItems []string) []Text {
	result := make([]Text, 0, len(newItems))
	i, j := 0, 0

	for i < len(oldItems) && j < len(newItems) {
		switch {
		case oldItems[i] == newItems[j]:
			result = append(result, PlainText(newItems[j]))
			i++
			j++
		case j+1 < len(newItems) && oldItems[i] == newItems[j+1]:
			// newItems[j] was inserted
			result = append(result, AddedText(newItems[j]))
			j++
		case i+1 < len(oldItems) && oldItems[i+1] == newItems[j]:
			// oldItems[i] was removed
			i++
		default:
			result = append(result, Words(oldItems[i], newItems[j]))
			i++
			j++
		}
	}

	for ; j < len(newItems); j++ {
		result = append(result, AddedText(newItems[j]))
	}
	return result
}

func lcsList(oldItems, newItems []string) []Text {
	n, m := len(oldItems), len(newItems)

	// lengths[i][j] is the LCS length of oldItems[i:] and newItems[j:]
	lengths := make([][]int, n+1)
	for i := range lengths {
		lengths[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldItems[i] == newItems[j] {
				lengths[i][j] = lengths[i+1][j+1] + 1
			} else {
				lengths[i][j] = max(lengths[i+1][j], lengths[i][j+1])
			}
		}
	}

	result := make([]Text, 0, m)
	var oldGap, newGap []string
	flush := func() {
		for k, item := range newGap {
			if k < len(oldGap) {
				result = append(result, Words(oldGap[k], item))
			} else {
				result = append(result, AddedText(item))
			}
		}
		oldGap, newGap = oldGap[:0], newGap[:0]
	}

	i, j := 0, 0
	for i < n && j < m {
		switch {
		case oldItems[i] == newItems[j]:
			flush()
			result = append(result, PlainText(newItems[j]))
			i++
			j++
		case lengths[i+1][j] >= lengths[i][j+1]:
			oldGap = append(oldGap, oldItems[i])
			i++
		default:
			newGap = append(newGap, newItems[j])
			j++
		}
	}
	oldGap = append(oldGap, oldItems[i:]...)
	newGap = append(newGap, newItems[j:]...)
	flush()

	return result
}
