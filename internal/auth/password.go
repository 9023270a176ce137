// Password hashing utilities.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness is a security feature: it makes brute-force attacks expensive.
//
// bcrypt automatically:
//   - Generates a random salt (so two users with the same password get different hashes)
//   - Embeds the salt in the output hash (no separate salt column needed)
//   - Controls the work factor via "cost" (higher = slower = harder to crack)
//
// NEVER store passwords in plain text or with fast hashes (MD5, SHA-256).
// Those can be cracked with GPU-accelerated rainbow tables in minutes.
// bcrypt with cost 10 takes ~80ms, cost 12 ~250ms: negligible for login, brutal for attackers.
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when BCRYPT_COST is not set.
//
// COST TUNING RULE OF THUMB:
// Set cost so that hashing takes ~100–300ms on your production hardware.
// Too low → easy to crack. Too high → login is sluggish and your server
// spends all its time on bcrypt during traffic spikes.
const DefaultCost = bcrypt.DefaultCost

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

var (
	// ErrPasswordTooLong is returned by Hash for inputs bcrypt would truncate.
	ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")

	// ErrPasswordMismatch is returned by Verify when the password is wrong.
	ErrPasswordMismatch = errors.New("auth: invalid password")
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests: using a lower cost (e.g. 4) makes tests run much faster
// without compromising the logic being tested.
type PasswordService struct {
	cost int

	// decoy is a bcrypt hash of a fixed string at the same cost, built on
	// first use by VerifyDecoy.
	decoyOnce sync.Once
	decoy     []byte
}

// NewPasswordService creates a PasswordService with the given bcrypt cost.
// Zero selects DefaultCost; anything outside bcrypt's [MinCost, MaxCost] is an error.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordService{cost: cost}, nil
}

// newPasswordServiceWithCost creates a PasswordService with a custom cost.
// Unexported helper used by the tests in this package.
func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with the given cost and
// no range check. Pass bcrypt.MinCost (4) from tests in other packages to avoid
// the hashing overhead of production costs.
//
// Do NOT use in production: cost 4 is far too weak.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// The output is a self-contained string like:
//
//	$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
//
// Store this string directly in the database. It includes the salt and
// cost: bcrypt.CompareHashAndPassword knows how to decode it.
//
// Returns ErrPasswordTooLong if the plaintext is over 72 bytes (a bcrypt limit).
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		// bcrypt silently truncates passwords longer than 72 bytes.
		// We reject them explicitly so callers aren't surprised.
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// Returns nil if they match, ErrPasswordMismatch if they don't, and a wrapped
// error if the stored hash itself is malformed.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword uses a constant-time comparison internally,
// so this function is safe against timing attacks: an attacker can't tell
// from response time whether they got the first byte right.
//
// Usage:
//
//	if err := ps.Verify(user.PasswordHash, inputPassword); err != nil {
//	    // wrong password
//	}
func (p *PasswordService) Verify(hash, plaintext string) error {
	// Hash never accepted anything this long, so it cannot match. The
	// comparison still runs on the first 72 bytes to cost the same time.
	if len(plaintext) > MaxPasswordBytes {
		bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext[:MaxPasswordBytes]))
		return ErrPasswordMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyDecoy does the same bcrypt work as Verify against a hash no caller
// knows the password for, and always reports ErrPasswordMismatch.
//
// WHY?
// Login looks the user up by email first. Returning straight away for an
// unknown email would answer in microseconds, while a wrong password takes
// a full bcrypt comparison: response time alone would reveal which
// addresses have accounts. Calling VerifyDecoy on the unknown-email path
// makes both failures cost one comparison.
func (p *PasswordService) VerifyDecoy(plaintext string) error {
	p.decoyOnce.Do(func() {
		// On error decoy stays nil and the comparison below fails fast.
		p.decoy, _ = bcrypt.GenerateFromPassword([]byte("time-capsule/decoy"), p.cost)
	})

	if len(plaintext) > MaxPasswordBytes {
		plaintext = plaintext[:MaxPasswordBytes]
	}
	bcrypt.CompareHashAndPassword(p.decoy, []byte(plaintext))
	return ErrPasswordMismatch
}
