package session

import (
	"fmt"
	"sync"
)

// Manager serializes all session mutations behind one mutex and pushes each
// accepted change to the store and to subscribers. Readers get value
// snapshots, never shared state.
type Manager struct {
	mu      sync.Mutex
	store   Store
	snap    Snapshot
	nextSub int
	subs    map[int]func(Snapshot)
}

// NewManager loads any persisted session from the store. A missing or empty
// store yields a signed-out session at version zero.
func NewManager(store Store) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}

	m := &Manager{store: store, subs: map[int]func(Snapshot){}}
	persisted, err := store.Load()
	if err != nil {
		return nil, err
	}
	if persisted != nil {
		m.snap = persisted.clone()
		// Reconcile: a persisted active company the user no longer belongs
		// to (membership revoked between runs) is dropped, not trusted.
		if m.snap.ActiveCompanyID != "" {
			if _, ok := m.snap.Company(m.snap.ActiveCompanyID); !ok {
				m.snap.ActiveCompanyID = ""
			}
		}
	}
	return m, nil
}

// Snapshot returns the current session state by value.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone()
}

// SetCredentials installs a fresh token pair after login, replacing whatever
// session came before it.
func (m *Manager) SetCredentials(accessToken, refreshToken, activeCompanyID string, companies []Company, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = Snapshot{
		Version:         m.snap.Version + 1,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		ActiveCompanyID: activeCompanyID,
		Companies:       append([]Company(nil), companies...),
		User:            user,
	}
	return m.commitLocked()
}

// ApplyRefresh installs rotated tokens only if the session is still at the
// version the refresh was started from. Returns false when another mutation
// (logout, switch, a competing login) won the race; the caller must discard
// its tokens and re-read the state.
func (m *Manager) ApplyRefresh(sinceVersion int64, accessToken, refreshToken, activeCompanyID string, companies []Company, user *User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.Version != sinceVersion {
		return false, nil
	}

	m.snap.Version++
	m.snap.AccessToken = accessToken
	m.snap.RefreshToken = refreshToken
	if activeCompanyID != "" {
		m.snap.ActiveCompanyID = activeCompanyID
	}
	if companies != nil {
		m.snap.Companies = append([]Company(nil), companies...)
	}
	if user != nil {
		u := *user
		m.snap.User = &u
	}
	return true, m.commitLocked()
}

// SelectKnownCompany switches the active company to one already in the
// snapshot. Unknown ids are a no-op so a stale UI cannot point the session at
// a company the user lost access to.
func (m *Manager) SelectKnownCompany(companyID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snap.Company(companyID); !ok {
		return false, nil
	}
	if m.snap.ActiveCompanyID == companyID {
		return true, nil
	}

	m.snap.Version++
	m.snap.ActiveCompanyID = companyID
	return true, m.commitLocked()
}

// AdoptCompany upserts a company the server just confirmed (via a
// switch-company response) and makes it active with the re-minted tokens.
func (m *Manager) AdoptCompany(company Company, accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := false
	for i := range m.snap.Companies {
		if m.snap.Companies[i].ID == company.ID {
			m.snap.Companies[i] = company
			replaced = true
			break
		}
	}
	if !replaced {
		m.snap.Companies = append(m.snap.Companies, company)
	}

	m.snap.Version++
	m.snap.ActiveCompanyID = company.ID
	m.snap.AccessToken = accessToken
	m.snap.RefreshToken = refreshToken
	return m.commitLocked()
}

// UpdateUser replaces the cached profile.
func (m *Manager) UpdateUser(user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap.Version++
	m.snap.User = &user
	return m.commitLocked()
}

// Logout clears the session. Calling it on an already signed-out session
// still succeeds; the version bump ensures any in-flight refresh started
// before the logout cannot resurrect the tokens.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = Snapshot{Version: m.snap.Version + 1}
	return m.commitLocked()
}

// Subscribe registers a callback invoked with each accepted snapshot. The
// returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) commitLocked() error {
	if err := m.store.Save(m.snap); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	snap := m.snap.clone()
	for _, fn := range m.subs {
		fn(snap)
	}
	return nil
}
