package sync

import (
	"context"

	"github.com/openvault/vaultsync/internal/merge"
)

// Resolution is the user's answer to a conflict prompt.
type Resolution int

const (
	ResolveCancel Resolution = iota
	ResolveUseLocal
	ResolveUseRemote
	ResolveFullReset
)

func (r Resolution) String() string {
	switch r {
	case ResolveUseLocal:
		return "use-local"
	case ResolveUseRemote:
		return "use-remote"
	case ResolveFullReset:
		return "full-reset"
	default:
		return "cancel"
	}
}

// Conflict carries everything a prompt needs to show the user.
type Conflict struct {
	Path             string
	LocalContent     string
	RemoteContent    string
	RemoteRev        string
	RemoteDeleted    bool
	Regions          []merge.Conflict
	RequiresFullSync bool
}

// ConflictResolver is the UI port. The sync drivers stay UI-free; a host
// injects a modal dialog, a CLI prompt, or a scripted resolver in tests.
// Resolve may block indefinitely on user input.
type ConflictResolver interface {
	Resolve(ctx context.Context, c *Conflict) Resolution
}

// ResolverFunc adapts a function to the ConflictResolver interface.
type ResolverFunc func(ctx context.Context, c *Conflict) Resolution

func (f ResolverFunc) Resolve(ctx context.Context, c *Conflict) Resolution {
	return f(ctx, c)
}
