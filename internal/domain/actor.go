package domain

// Actor is an identity together with the tasks it was involved in during a report window.
type Actor struct {
	PHID    string
	Name    string
	TaskIDs []int
}

// DisplayName returns the resolved name, falling back to the raw identity reference.
func (a *Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.PHID
}
