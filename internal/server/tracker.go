package server

import (
	"sort"
	"sync"
)

// ActiveConversationTracker records which users are actively viewing
// each conversation. Presence here is conversation-local: a user can be
// online globally without reading a given thread, and seen-receipt
// fanout is gated on this distinction.
type ActiveConversationTracker struct {
	mu            sync.Mutex
	conversations map[string]map[int]struct{}
}

func NewActiveConversationTracker() *ActiveConversationTracker {
	return &ActiveConversationTracker{
		conversations: make(map[string]map[int]struct{}),
	}
}

// MarkPresent adds userId to the conversation's presence set. It
// reports true only for the call that actually performs the insertion,
// so repeated seen pings within one presence window don't re-broadcast.
func (t *ActiveConversationTracker) MarkPresent(conversationId string, userId int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.conversations[conversationId]
	if !ok {
		members = make(map[int]struct{})
		t.conversations[conversationId] = members
	}

	if _, present := members[userId]; present {
		return false
	}

	members[userId] = struct{}{}
	return true
}

// ClearUser removes userId from every conversation it is present in and
// returns the ids of the conversations whose membership changed. Empty
// sets are pruned.
func (t *ActiveConversationTracker) ClearUser(userId int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changed []string
	for id, members := range t.conversations {
		if _, present := members[userId]; !present {
			continue
		}

		delete(members, userId)
		if len(members) == 0 {
			delete(t.conversations, id)
		}
		changed = append(changed, id)
	}
	sort.Strings(changed)

	return changed
}

// MembersOf returns the users present in the conversation in ascending
// order.
func (t *ActiveConversationTracker) MembersOf(conversationId string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	members := make([]int, 0, len(t.conversations[conversationId]))
	for id := range t.conversations[conversationId] {
		members = append(members, id)
	}
	sort.Ints(members)

	return members
}
