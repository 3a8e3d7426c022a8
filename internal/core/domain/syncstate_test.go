package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateFromTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want SyncState
	}{
		{"no tags", nil, StateUntracked},
		{"unrelated", []string{"physics"}, StateUntracked},
		{"to_sync", []string{"to_sync"}, StateToSync},
		{"synced", []string{"synced"}, StateSynced},
		{"read", []string{"synced", "read"}, StateRead},
		{"annotated", []string{"synced", "annotated"}, StateAnnotated},
		{"stale to_sync wins", []string{"synced", "to_sync"}, StateToSync},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateFromTags(tt.tags))
		})
	}
}

func TestSyncState_String(t *testing.T) {
	assert.Equal(t, "untracked", StateUntracked.String())
	assert.Equal(t, "to_sync", StateToSync.String())
	assert.Equal(t, "synced", StateSynced.String())
	assert.Equal(t, "read", StateRead.String())
	assert.Equal(t, "annotated", StateAnnotated.String())
	assert.False(t, StateUntracked.IsTracked())
	assert.True(t, StateSynced.IsTracked())
}

func TestNextTransition_ToSync(t *testing.T) {
	action := NextTransition(StateToSync, Signals{})

	assert.Equal(t, ActionPush, action.Kind)
	assert.Equal(t, ScopeItem, action.Scope)
	assert.Equal(t, []string{TagSynced}, action.Delta.Add)
	assert.Equal(t, []string{TagToSync}, action.Delta.Remove)
}

func TestNextTransition_UploadBack(t *testing.T) {
	action := NextTransition(StateSynced, Signals{AnnotatedFileReady: true})

	assert.Equal(t, ActionUploadBack, action.Kind)
	assert.Equal(t, ScopeAttachment, action.Scope)
	assert.Equal(t, []string{TagAnnotated}, action.Delta.Add)
	assert.Empty(t, action.Delta.Remove)
}

func TestNextTransition_AlreadyAnnotated(t *testing.T) {
	action := NextTransition(StateSynced, Signals{AnnotatedFileReady: true, AttachmentAnnotated: true})

	assert.Equal(t, ActionNone, action.Kind)
	assert.ErrorIs(t, action.Skip, ErrAlreadyAnnotated)
	assert.True(t, action.Delta.IsEmpty())
}

func TestNextTransition_Pull(t *testing.T) {
	assert.Equal(t, ActionPull, NextTransition(StateSynced, Signals{TabletRead: true}).Kind)
	assert.Equal(t, ActionPull, NextTransition(StateRead, Signals{TabletRead: true}).Kind)

	skipped := NextTransition(StateSynced, Signals{TabletRead: true, AttachmentAnnotated: true})
	assert.Equal(t, ActionNone, skipped.Kind)
	assert.ErrorIs(t, skipped.Skip, ErrAlreadyAnnotated)
}

func TestNextTransition_NothingDue(t *testing.T) {
	assert.Equal(t, ActionNone, NextTransition(StateUntracked, Signals{TabletRead: true, AnnotatedFileReady: true}).Kind)
	assert.Equal(t, ActionNone, NextTransition(StateSynced, Signals{}).Kind)
	assert.Nil(t, NextTransition(StateSynced, Signals{}).Skip)
}

func TestTagDelta_Apply(t *testing.T) {
	delta := TagDelta{Add: []string{"synced"}, Remove: []string{"to_sync"}}

	tags := []string{"physics", "to_sync"}
	got := delta.Apply(tags)

	assert.Equal(t, []string{"physics", "synced"}, got)
	assert.Equal(t, []string{"physics", "to_sync"}, tags, "input must not be modified")
}

func TestTagDelta_Apply_Idempotent(t *testing.T) {
	delta := TagDelta{Add: []string{"synced"}, Remove: []string{"to_sync"}}

	once := delta.Apply([]string{"to_sync"})
	twice := delta.Apply(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"synced"}, twice)
}

func TestTagDelta_IsEmpty(t *testing.T) {
	assert.True(t, TagDelta{}.IsEmpty())
	assert.False(t, TagDelta{Add: []string{"x"}}.IsEmpty())
}
