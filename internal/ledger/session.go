package ledger

// SessionMode fixes, for the lifetime of a repository, whether records
// live in the local guest store or in the owner's replicated store.
// There is no mixed mode and no migration between the two.
type SessionMode struct {
	ownerID       string
	authenticated bool
}

// Guest returns the local-only session mode.
func Guest() SessionMode {
	return SessionMode{}
}

// Authenticated returns the replicated session mode for the given owner.
func Authenticated(ownerID string) SessionMode {
	return SessionMode{ownerID: ownerID, authenticated: true}
}

func (m SessionMode) IsGuest() bool {
	return !m.authenticated
}

// OwnerID is empty in guest mode.
func (m SessionMode) OwnerID() string {
	return m.ownerID
}

func (m SessionMode) String() string {
	if m.authenticated {
		return "authenticated"
	}
	return "guest"
}
