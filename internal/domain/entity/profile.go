package entity

// Profile is the desired destination-side author metadata for one feed.
type Profile struct {
	DisplayName string
	About       string
}

// Equal reports whether both fields match exactly.
// No whitespace or case folding is applied.
func (p Profile) Equal(other Profile) bool {
	return p.DisplayName == other.DisplayName && p.About == other.About
}
