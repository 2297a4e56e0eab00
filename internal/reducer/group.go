package reducer

import (
	"sort"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// GroupByActor collects, for every identity in any state's actor set, the tasks it was involved in.
// Actors come back ordered by identity reference, task ids ascending.
func GroupByActor(states []domain.TaskIntervalState) []*domain.Actor {
	byRef := make(map[string]*domain.Actor)
	for _, state := range states {
		for _, ref := range state.Actors {
			actor, ok := byRef[ref]
			if !ok {
				actor = &domain.Actor{PHID: ref}
				byRef[ref] = actor
			}
			actor.TaskIDs = append(actor.TaskIDs, state.TaskID)
		}
	}

	actors := make([]*domain.Actor, 0, len(byRef))
	for _, actor := range byRef {
		sort.Ints(actor.TaskIDs)
		actors = append(actors, actor)
	}
	sort.Slice(actors, func(i, j int) bool {
		return actors[i].PHID < actors[j].PHID
	})
	return actors
}
