package router

import (
	"net/url"
	"strconv"
	"sync"
)

// BlockReason is why the whole dashboard is unavailable.
type BlockReason string

const (
	BlockNone        BlockReason = ""
	BlockSetup       BlockReason = "setup"
	BlockMaintenance BlockReason = "maintenance"
)

// State is the guard state used to decide a navigation.
type State string

const (
	StateUnauthenticated State = "Unauthenticated"
	StateAuthenticated   State = "Authenticated"
	StateSystemBlocked   State = "SystemBlocked"
)

// AuthState reports whether a user is signed in.
type AuthState interface {
	IsLoggedIn() bool
}

// Guard decides every navigation from the login state and the system
// block flag.
type Guard struct {
	auth AuthState

	mu      sync.RWMutex
	blocked BlockReason
}

// NewGuard creates a guard over auth.
func NewGuard(auth AuthState) *Guard {
	return &Guard{auth: auth}
}

// Block sends every guarded navigation to the page of reason.
func (g *Guard) Block(reason BlockReason) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked = reason
}

// Unblock lifts a block.
func (g *Guard) Unblock() {
	g.Block(BlockNone)
}

// Blocked returns the current block reason.
func (g *Guard) Blocked() BlockReason {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.blocked
}

// State summarizes the guard inputs.
func (g *Guard) State() State {
	if g.Blocked() != BlockNone {
		return StateSystemBlocked
	}
	if g.auth.IsLoggedIn() {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// Check returns the location to redirect to, or nil to allow to.
func (g *Guard) Check(to Location) *Location {
	if to.Name == NameMaintenance || (to.Name == NameSetup && setupQueryAllows(to.Query)) {
		return nil
	}

	switch g.Blocked() {
	case BlockSetup:
		return &Location{Name: NameSetup, Path: "/setup"}
	case BlockMaintenance:
		return &Location{Name: NameMaintenance, Path: "/maintenance"}
	}

	loggedIn := g.auth.IsLoggedIn()
	if !loggedIn && to.Name != NameLogin {
		login := Location{Name: NameLogin, Path: "/login"}
		login.Query = map[string][]string{"redirect": {to.Path}}
		return &login
	}
	if loggedIn && to.Name == NameLogin {
		return &Location{Name: NameApplications, Path: "/applications"}
	}
	return nil
}

// setupQueryAllows is true when the update query is absent or a leading
// integer equal to zero. A present but empty update is not a number.
func setupQueryAllows(query url.Values) bool {
	if !query.Has("update") {
		return true
	}
	update := query.Get("update")
	end := 0
	for end < len(update) && (update[end] >= '0' && update[end] <= '9' || end == 0 && (update[0] == '-' || update[0] == '+')) {
		end++
	}
	n, err := strconv.Atoi(update[:end])
	return err == nil && n == 0
}
