package system

import "fmt"

// ErrUnresolvedAttachment is returned at finalize time when a placeholder's
// target system type was never registered with the dispatcher.
type ErrUnresolvedAttachment struct {
	FieldSystem string
	TargetType  string
}

func (e ErrUnresolvedAttachment) Error() string {
	return fmt.Sprintf("system %s: attachment target %s is not registered", e.FieldSystem, e.TargetType)
}

// Placeholder is a one-shot tagged variant: created during system
// construction via attach(type), resolved exactly once during dispatcher
// finalization, and never consulted after that. Modeled as an explicit
// one-shot state transition rather than a pointer that starts nil, so a
// read before resolution is a programming error the type itself can catch
// instead of silently handing back a nil peer.
type Placeholder struct {
	typeName string
	resolved bool
	instance any
}

// NewPlaceholder creates an unresolved placeholder for the named peer
// system type. typeName is used only for diagnostics.
func NewPlaceholder(typeName string) *Placeholder {
	return &Placeholder{typeName: typeName}
}

// TypeName returns the peer system type this placeholder targets.
func (p *Placeholder) TypeName() string { return p.typeName }

// Resolve transitions the placeholder to Resolved exactly once. Calling it
// twice panics: resolution happens once, during finalize, by construction of
// the dispatcher's own code path, so a second call indicates a bug in the
// core, not caller misuse.
func (p *Placeholder) Resolve(instance any) {
	if p.resolved {
		panic("system: placeholder already resolved")
	}
	p.instance = instance
	p.resolved = true
}

// Resolved reports whether Resolve has been called.
func (p *Placeholder) Resolved() bool { return p.resolved }

// Instance returns the resolved peer, panicking if called before Resolve;
// user code should never observe an unresolved placeholder, since the
// dispatcher resolves every one before any system's Initialize runs.
func (p *Placeholder) Instance() any {
	if !p.resolved {
		panic("system: read of unresolved attachment placeholder " + p.typeName)
	}
	return p.instance
}
