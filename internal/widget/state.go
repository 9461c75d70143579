package widget

// State is the lifecycle position of one mounted widget session.
type State int

const (
	Uninitialized State = iota
	Suppressed
	ScriptLoading
	ScriptReady
	IdentityPending
	Identified
	IdentityFailed
)

var stateNames = [...]string{
	Uninitialized:   "uninitialized",
	Suppressed:      "suppressed",
	ScriptLoading:   "script_loading",
	ScriptReady:     "script_ready",
	IdentityPending: "identity_pending",
	Identified:      "identified",
	IdentityFailed:  "identity_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen without a new
// identity. ScriptReady is terminal only for anonymous sessions, so it is
// not included here.
func (s State) Terminal() bool {
	switch s {
	case Suppressed, Identified, IdentityFailed:
		return true
	default:
		return false
	}
}
