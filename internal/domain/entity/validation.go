package entity

// Validate checks the invariants every article must satisfy before it reaches
// a storage backend.
func (a *Article) Validate() error {
	if a.UID == "" {
		return ErrMissingUID
	}
	if len(a.Sections) == 0 {
		return ErrNoSections
	}
	return nil
}
