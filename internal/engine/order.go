package engine

import "sort"

// seatedWithStack returns the seat indices (into Players) of players seated
// with role=player and a positive stack, sorted ascending by SeatIndex.
func seatedWithStack(players []Player) []int {
	idx := make([]int, 0, len(players))
	for i, p := range players {
		if p.Role == RolePlayer && p.Stack > 0 {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool { return players[idx[a]].SeatIndex < players[idx[b]].SeatIndex })
	return idx
}

// rotationFromDealer returns, in clockwise seat order starting the seat
// immediately after dealerSeatIndex and wrapping all the way back around to
// include the dealer's own seat last, the Players indices of every
// non-folded role=player seat.
func rotationFromDealer(players []Player, dealerSeatIndex int) []int {
	type seated struct {
		seat int
		idx  int
	}
	all := make([]seated, 0, len(players))
	for i, p := range players {
		if p.Role == RolePlayer && !p.Folded {
			all = append(all, seated{seat: p.SeatIndex, idx: i})
		}
	}
	sort.Slice(all, func(a, b int) bool { return all[a].seat < all[b].seat })

	start := 0
	for i, s := range all {
		if s.seat > dealerSeatIndex {
			start = i
			break
		}
		start = (i + 1) % len(all)
	}

	out := make([]int, 0, len(all))
	for i := 0; i < len(all); i++ {
		out = append(out, all[(start+i)%len(all)].idx)
	}
	return out
}

// advanceDealer finds the smallest seat index strictly greater than
// current among idx (Players indices sorted by seat), wrapping to the
// smallest seat if none is greater. If current is -1 (no hand played yet)
// it returns the first eligible seat.
func advanceDealer(players []Player, idx []int, current int) int {
	if len(idx) == 0 {
		return current
	}
	if current < 0 {
		return players[idx[0]].SeatIndex
	}
	for _, playerIdx := range idx {
		if players[playerIdx].SeatIndex > current {
			return players[playerIdx].SeatIndex
		}
	}
	return players[idx[0]].SeatIndex
}

// canActCount returns how many non-folded, non-all-in player seats remain.
func canActCount(players []Player) int {
	n := 0
	for _, p := range players {
		if p.canAct() {
			n++
		}
	}
	return n
}

// nonFoldedCount returns how many role=player seats have not folded.
func nonFoldedCount(players []Player) int {
	n := 0
	for _, p := range players {
		if p.Role == RolePlayer && !p.Folded {
			n++
		}
	}
	return n
}

// soleSurvivor returns the index of the lone non-folded player, or -1 if
// zero or more than one remain.
func soleSurvivor(players []Player) int {
	idx := -1
	count := 0
	for i, p := range players {
		if p.Role == RolePlayer && !p.Folded {
			count++
			idx = i
		}
	}
	if count == 1 {
		return idx
	}
	return -1
}

// nextToAct finds the next non-folded, non-all-in player seat clockwise
// after fromSeatIndex, wrapping.
func nextToAct(players []Player, fromSeatIndex int) string {
	order := rotationFromDealer(players, fromSeatIndex)
	for _, idx := range order {
		if players[idx].canAct() {
			return players[idx].ID
		}
	}
	return ""
}

// firstToActAfterDealer returns the id of the first non-folded,
// non-all-in seat clockwise after the dealer, or "" if none.
func firstToActAfterDealer(players []Player, dealerSeatIndex int) string {
	return nextToAct(players, dealerSeatIndex)
}
