package auth

// SilentOutcome classifies a silent token acquisition attempt.
type SilentOutcome int

const (
	// SilentFresh means a usable token was returned from cache or refreshed.
	SilentFresh SilentOutcome = iota
	// SilentExpired means there is no usable refresh material left.
	SilentExpired
	// SilentInvalid means the provider rejected the refresh material.
	SilentInvalid
	// SilentFailed means the provider could not be reached or failed for
	// reasons unrelated to the cached material.
	SilentFailed
)

// String returns a human-readable representation of the outcome.
func (o SilentOutcome) String() string {
	switch o {
	case SilentFresh:
		return "fresh"
	case SilentExpired:
		return "expired"
	case SilentInvalid:
		return "invalid"
	case SilentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SilentResult is returned by IdentityClient.AcquireSilent. Callers branch on
// Outcome instead of inspecting provider errors.
type SilentResult struct {
	Outcome SilentOutcome
	Token   Token
	Err     error
}

// NeedsInteraction reports whether only a new interactive sign-in can help.
func (r SilentResult) NeedsInteraction() bool {
	return r.Outcome == SilentExpired || r.Outcome == SilentInvalid
}

// Fresh builds a successful result.
func Fresh(t Token) SilentResult {
	return SilentResult{Outcome: SilentFresh, Token: t}
}

// Expired builds a result for missing or expired refresh material.
func Expired(err error) SilentResult {
	return SilentResult{Outcome: SilentExpired, Err: err}
}

// Invalid builds a result for refresh material rejected by the provider.
func Invalid(err error) SilentResult {
	return SilentResult{Outcome: SilentInvalid, Err: err}
}

// Failed builds a result for transport or provider failures.
func Failed(err error) SilentResult {
	return SilentResult{Outcome: SilentFailed, Err: err}
}
