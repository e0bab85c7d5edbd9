package workspace

// SelectionPair holds at most two distinct dataset ids picked for comparison,
// in the order they were picked. Once two are held a third cannot be added
// until one is released.
type SelectionPair struct {
	ids []int64
}

// Toggle selects id, or deselects it if already selected. It returns false
// when the toggle was refused because two other ids are already held.
func (p *SelectionPair) Toggle(id int64) bool {
	for i, held := range p.ids {
		if held == id {
			p.ids = append(p.ids[:i:i], p.ids[i+1:]...)
			return true
		}
	}
	if len(p.ids) >= 2 {
		return false
	}
	p.ids = append(p.ids, id)
	return true
}

// IsSelected reports whether id is held.
func (p *SelectionPair) IsSelected(id int64) bool {
	for _, held := range p.ids {
		if held == id {
			return true
		}
	}
	return false
}

// CanSelect reports whether toggling id would be accepted, i.e. whether its
// checkbox is enabled.
func (p *SelectionPair) CanSelect(id int64) bool {
	return p.IsSelected(id) || len(p.ids) < 2
}

// CanCompare reports whether exactly two distinct ids are held.
func (p *SelectionPair) CanCompare() bool {
	return len(p.ids) == 2 && p.ids[0] != p.ids[1]
}

// Pair returns the two held ids in pick order.
func (p *SelectionPair) Pair() (a, b int64, ok bool) {
	if !p.CanCompare() {
		return 0, 0, false
	}
	return p.ids[0], p.ids[1], true
}

// IDs returns the held ids in pick order.
func (p *SelectionPair) IDs() []int64 {
	return append([]int64(nil), p.ids...)
}

// Len returns how many ids are held.
func (p *SelectionPair) Len() int {
	return len(p.ids)
}

// Reset releases both ids.
func (p *SelectionPair) Reset() {
	p.ids = nil
}
