package session

// Company is a company the signed-in user can act under.
type Company struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
	Role         string `json:"role"`
}

// User mirrors the profile fields the client keeps around between requests.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Snapshot is one immutable view of the session. Version increases on every
// mutation; a writer that read version N can only apply its result while the
// state is still at N, which is how a logout beats an in-flight refresh.
type Snapshot struct {
	Version         int64     `json:"version"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	ActiveCompanyID string    `json:"active_company_id"`
	Companies       []Company `json:"companies"`
	User            *User     `json:"user,omitempty"`
}

// Authenticated reports whether a user is signed in. The user record is the
// source of truth; tokens alone are transport state, not identity.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// CanRefresh reports whether the snapshot carries a token pair the client
// could rotate.
func (s Snapshot) CanRefresh() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Company returns the company with the given id, if known.
func (s Snapshot) Company(id string) (Company, bool) {
	for _, c := range s.Companies {
		if c.ID == id {
			return c, true
		}
	}
	return Company{}, false
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Companies = append([]Company(nil), s.Companies...)
	if s.User != nil {
		user := *s.User
		out.User = &user
	}
	return out
}
