package astrology

import "time"

// AccessToken is a bearer credential for the astrology provider.
type AccessToken struct {
	Value      string
	ObtainedAt time.Time
	// Expiry is zero when the provider did not state a lifetime.
	Expiry time.Time
}

// FreshAt reports whether the token can still be used at now, keeping margin in
// reserve before the stated expiry. Tokens without an expiry are never fresh so
// they are fetched again on every call.
func (t AccessToken) FreshAt(now time.Time, margin time.Duration) bool {
	if t.Value == "" || t.Expiry.IsZero() {
		return false
	}
	return now.Add(margin).Before(t.Expiry)
}
