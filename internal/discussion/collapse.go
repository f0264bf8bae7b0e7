package discussion

// CollapseState tracks which subthreads are folded in the current
// discussion session. Pure view state: never persisted, never synced.
type CollapseState struct {
	collapsed map[string]bool
}

func NewCollapseState() *CollapseState {
	return &CollapseState{collapsed: map[string]bool{}}
}

// Toggle flips the collapsed flag for a message id.
func (s *CollapseState) Toggle(messageID string) {
	if s.collapsed[messageID] {
		delete(s.collapsed, messageID)
		return
	}
	s.collapsed[messageID] = true
}

func (s *CollapseState) IsCollapsed(messageID string) bool {
	return s.collapsed[messageID]
}

// Reset clears all collapse flags, e.g. when switching tasks.
func (s *CollapseState) Reset() {
	s.collapsed = map[string]bool{}
}
