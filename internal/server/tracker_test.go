package server

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveConversationTracker_MarkPresent(t *testing.T) {
	tracker := NewActiveConversationTracker()

	assert.True(t, tracker.MarkPresent("c1", 1), "expected first mark to be new")
	assert.False(t, tracker.MarkPresent("c1", 1), "expected repeated mark to not be new")
	assert.True(t, tracker.MarkPresent("c1", 2), "expected different user to be new")
	assert.True(t, tracker.MarkPresent("c2", 1), "expected different conversation to be new")

	assert.Equal(t, []int{1, 2}, tracker.MembersOf("c1"))
	assert.Equal(t, []int{1}, tracker.MembersOf("c2"))
}

func TestActiveConversationTracker_ClearUser(t *testing.T) {
	tracker := NewActiveConversationTracker()

	tracker.MarkPresent("c1", 1)
	tracker.MarkPresent("c2", 1)
	tracker.MarkPresent("c2", 2)
	tracker.MarkPresent("c3", 2)

	changed := tracker.ClearUser(1)
	assert.Equal(t, []string{"c1", "c2"}, changed, "expected only conversations user 1 was present in")

	assert.Empty(t, tracker.MembersOf("c1"), "expected c1 membership cleared")
	assert.Equal(t, []int{2}, tracker.MembersOf("c2"), "expected other members untouched")
	assert.Equal(t, []int{2}, tracker.MembersOf("c3"), "expected unrelated conversation untouched")

	changed = tracker.ClearUser(1)
	assert.Empty(t, changed, "expected second clear to change nothing")
}

func TestActiveConversationTracker_MembersOfUnknown(t *testing.T) {
	tracker := NewActiveConversationTracker()
	assert.Empty(t, tracker.MembersOf("nope"), "expected empty members for unknown conversation")
}

func TestActiveConversationTracker_ConcurrentMarkPresent(t *testing.T) {
	tracker := NewActiveConversationTracker()

	// only the call that performs the insertion may report new
	const numCallers = 32
	var newCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < numCallers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.MarkPresent("c1", 1) {
				newCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), newCount.Load(), "expected exactly one caller to report new")
	assert.Equal(t, []int{1}, tracker.MembersOf("c1"))
}

func TestActiveConversationTracker_ConcurrentClear(t *testing.T) {
	tracker := NewActiveConversationTracker()

	const numConvs = 20
	convIds := make([]string, numConvs)
	for i := range convIds {
		convIds[i] = string(rune('a' + i))
		tracker.MarkPresent(convIds[i], 1)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tracker.MarkPresent("zz", 1)
	}()
	go func() {
		defer wg.Done()
		tracker.ClearUser(1)
	}()
	wg.Wait()

	// whichever order the two ran in, a final clear must leave no
	// membership behind
	tracker.ClearUser(1)
	for _, id := range append(convIds, "zz") {
		assert.Empty(t, tracker.MembersOf(id), "expected no orphaned membership in %q", id)
	}
}
