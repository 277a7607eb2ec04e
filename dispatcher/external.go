package dispatcher

import "github.com/rtcorbin/ecsrun/system"

// ComponentRegistry and ChangeLog are the external collaborator interfaces
// a production embedder may satisfy instead of using the provided
// registry.Registry / changelog.Log reference implementations. They are
// declared as aliases of the system package's own interfaces: Container
// consumes the identical collaborators one layer down, so there is exactly
// one interface boundary to implement against, not two drifting copies.
type ComponentRegistry = system.ComponentRegistry
type ChangeLog = system.ChangeLog
