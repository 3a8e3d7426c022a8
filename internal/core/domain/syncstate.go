package domain

import "slices"

// SyncState is an item's position in the sync lifecycle.
// It is never stored; it is derived from the tag set at read time.
type SyncState int

// Sync states in lifecycle order.
const (
	StateUntracked SyncState = iota
	StateToSync
	StateSynced
	StateRead
	StateAnnotated
)

// String returns the state name.
func (s SyncState) String() string {
	switch s {
	case StateToSync:
		return "to_sync"
	case StateSynced:
		return "synced"
	case StateRead:
		return "read"
	case StateAnnotated:
		return "annotated"
	default:
		return "untracked"
	}
}

// IsTracked reports whether the item has entered the lifecycle.
func (s SyncState) IsTracked() bool {
	return s != StateUntracked
}

// StateFromTags derives the sync state of a tag set.
//
// An explicit to_sync request wins over everything else; otherwise the most
// advanced lifecycle tag wins. Stale tags are tolerated, not cleaned up.
func StateFromTags(tags []string) SyncState {
	switch {
	case slices.Contains(tags, TagToSync):
		return StateToSync
	case slices.Contains(tags, TagAnnotated):
		return StateAnnotated
	case slices.Contains(tags, TagRead):
		return StateRead
	case slices.Contains(tags, TagSynced):
		return StateSynced
	default:
		return StateUntracked
	}
}

// Signals are the external observations that drive transitions.
type Signals struct {
	// TabletRead is set when the tablet reports the document read or modified.
	TabletRead bool

	// AnnotatedFileReady is set when a rendered PDF matching one of the
	// item's attachments exists locally.
	AnnotatedFileReady bool

	// AttachmentAnnotated is set when the matched attachment already
	// carries the annotated tag.
	AttachmentAnnotated bool
}

// ActionKind enumerates what the orchestrator does for an item.
type ActionKind int

const (
	// ActionNone means nothing is due.
	ActionNone ActionKind = iota

	// ActionPush uploads the item's PDFs to the tablet.
	ActionPush

	// ActionPull downloads and renders the tablet document.
	ActionPull

	// ActionUploadBack stores the rendered PDF in the library.
	ActionUploadBack
)

// String returns the action name.
func (k ActionKind) String() string {
	switch k {
	case ActionPush:
		return "push"
	case ActionPull:
		return "pull"
	case ActionUploadBack:
		return "upload-back"
	default:
		return "none"
	}
}

// Scope says which record a tag delta applies to.
type Scope int

const (
	// ScopeItem applies the delta to the library item.
	ScopeItem Scope = iota

	// ScopeAttachment applies the delta to the matched attachment.
	ScopeAttachment
)

// TagDelta is the tag change that persists a transition.
type TagDelta struct {
	Add    []string
	Remove []string
}

// IsEmpty reports whether the delta changes nothing.
func (d TagDelta) IsEmpty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// Apply returns tags with the delta applied. The input is not modified;
// existing order is kept and added tags are appended once.
func (d TagDelta) Apply(tags []string) []string {
	out := make([]string, 0, len(tags)+len(d.Add))
	for _, t := range tags {
		if slices.Contains(d.Remove, t) || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	for _, t := range d.Add {
		if !slices.Contains(out, t) && !slices.Contains(d.Remove, t) {
			out = append(out, t)
		}
	}
	return out
}

// Action is the transition chosen for an item.
type Action struct {
	Kind  ActionKind
	Scope Scope

	// Delta is committed only after the action's side effects succeed.
	Delta TagDelta

	// Skip explains an ActionNone that is a deliberate no-op,
	// e.g. ErrAlreadyAnnotated.
	Skip error
}

// NextTransition decides the action due for an item in state with the
// given signals. It is pure: persisting the result is the caller's job.
func NextTransition(state SyncState, sig Signals) Action {
	switch {
	case state == StateToSync:
		return Action{
			Kind:  ActionPush,
			Scope: ScopeItem,
			Delta: TagDelta{Add: []string{TagSynced}, Remove: []string{TagToSync}},
		}

	case sig.AnnotatedFileReady && state >= StateSynced:
		if sig.AttachmentAnnotated {
			return Action{Kind: ActionNone, Skip: ErrAlreadyAnnotated}
		}
		return Action{
			Kind:  ActionUploadBack,
			Scope: ScopeAttachment,
			Delta: TagDelta{Add: []string{TagAnnotated}},
		}

	case sig.TabletRead && state >= StateSynced:
		if sig.AttachmentAnnotated {
			return Action{Kind: ActionNone, Skip: ErrAlreadyAnnotated}
		}
		return Action{Kind: ActionPull, Scope: ScopeItem}
	}

	return Action{Kind: ActionNone}
}
