package vdom

import "slices"

// diffKeyedChildren reconciles keyed children.
//
// Leading and trailing runs with identical keys are matched first. The
// remaining interior is reconciled through a key table: removals run
// first, then the interior is rebuilt right to left around the longest run
// of survivors that already appear in the new relative order, so only
// children outside that run move. The resulting Reorder op leaves the live
// list in the new order; content changes of children that did not move
// follow as Descend ops at their final indices.
func diffKeyedChildren(prevNode, nextNode *Node, p *Patch) {
	prevKeys, prevKids := prevNode.Keys, prevNode.Children
	nextKeys, nextKids := nextNode.Keys, nextNode.Children

	// Common prefix
	start := 0
	for start < len(prevKeys) && start < len(nextKeys) && prevKeys[start] == nextKeys[start] {
		start++
	}

	// Common suffix
	prevEnd, nextEnd := len(prevKeys), len(nextKeys)
	for prevEnd > start && nextEnd > start && prevKeys[prevEnd-1] == nextKeys[nextEnd-1] {
		prevEnd--
		nextEnd--
	}

	// Children that keep their slot: prefix, suffix and stable interior.
	// Indices are final positions in next.
	type pending struct {
		index      int
		prev, next *Node
	}
	var stay []pending
	for i := 0; i < start; i++ {
		stay = append(stay, pending{i, prevKids[i], nextKids[i]})
	}

	var moves []Move
	if start < prevEnd || start < nextEnd {
		prevIndex := make(map[string]int, prevEnd-start)
		for i := start; i < prevEnd; i++ {
			prevIndex[prevKeys[i]] = i
		}
		nextIndex := make(map[string]int, nextEnd-start)
		for j := start; j < nextEnd; j++ {
			nextIndex[nextKeys[j]] = j
		}

		// Simulated live key list
		live := slices.Clone(prevKeys)

		// Removals, right to left so earlier indices stay valid
		for i := prevEnd - 1; i >= start; i-- {
			if _, ok := nextIndex[prevKeys[i]]; !ok {
				moves = append(moves, Move{Kind: MoveRemove, Key: prevKeys[i], From: i})
				live = slices.Delete(live, i, i+1)
			}
		}

		// Survivors in old order, mapped to their new positions
		var survivors []string
		var positions []int
		for i := start; i < prevEnd; i++ {
			if j, ok := nextIndex[prevKeys[i]]; ok {
				survivors = append(survivors, prevKeys[i])
				positions = append(positions, j)
			}
		}
		stable := make(map[string]bool, len(survivors))
		for _, idx := range longestIncreasing(positions) {
			stable[survivors[idx]] = true
		}

		// Rebuild the interior right to left. Each child is placed before
		// the child that follows it in next, which is already in place.
		for j := nextEnd - 1; j >= start; j-- {
			key := nextKeys[j]
			anchor := func() int {
				if j+1 < len(nextKeys) {
					return slices.Index(live, nextKeys[j+1])
				}
				return len(live)
			}

			i, existed := prevIndex[key]
			switch {
			case !existed:
				to := anchor()
				moves = append(moves, Move{Kind: MoveInsert, Key: key, To: to, Node: nextKids[j]})
				live = slices.Insert(live, to, key)
			case stable[key]:
				stay = append(stay, pending{j, prevKids[i], nextKids[j]})
			default:
				from := slices.Index(live, key)
				live = slices.Delete(live, from, from+1)
				to := anchor()
				live = slices.Insert(live, to, key)
				moves = append(moves, Move{
					Kind:  MoveMove,
					Key:   key,
					From:  from,
					To:    to,
					Patch: Diff(prevKids[i], nextKids[j]),
				})
			}
		}
	}

	for i, j := prevEnd, nextEnd; i < len(prevKeys); i, j = i+1, j+1 {
		stay = append(stay, pending{j, prevKids[i], nextKids[j]})
	}

	if len(moves) > 0 {
		*p = append(*p, Op{Kind: OpReorder, Moves: moves})
	}

	slices.SortFunc(stay, func(a, b pending) int { return a.index - b.index })
	for _, s := range stay {
		descend(p, s.index, nextKeys[s.index], s.prev, s.next)
	}
}

// longestIncreasing returns the indices into seq of one longest strictly
// increasing subsequence, in ascending order.
func longestIncreasing(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}
	// tails[k] is the index of the smallest tail of an increasing run of length k+1
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	out := make([]int, len(tails))
	for k, i := len(tails)-1, tails[len(tails)-1]; k >= 0; k, i = k-1, prev[i] {
		out[k] = i
	}
	return out
}
