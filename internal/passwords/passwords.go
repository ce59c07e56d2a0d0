// Package passwords hashes and verifies account passwords. Encoded values
// carry their algorithm as a prefix ("pbkdf2_sha256$...", "bcrypt$...") so
// accounts hashed with an older configuration keep verifying after the
// default hasher changes.
package passwords

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/dmitrijs2005/customuser/internal/common"
)

const (
	AlgorithmPBKDF2 = "pbkdf2_sha256"
	AlgorithmBCrypt = "bcrypt"

	// DefaultIterations matches the work factor recommended for PBKDF2-SHA256.
	DefaultIterations = 600000

	// UnusablePrefix marks a password that never verifies.
	UnusablePrefix = "!"

	saltLength          = 22
	unusableSuffixLen   = 40
	pbkdf2KeyLength     = sha256.Size
	minPBKDF2Iterations = 1
)

var ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")

// SummaryItem is one labelled, masked piece of an encoded password, used to
// show a hash in the admin without revealing it.
type SummaryItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Hasher encodes raw passwords and verifies candidates against encodings
// produced by the same algorithm.
type Hasher interface {
	Algorithm() string
	Encode(password string) (string, error)
	Verify(password, encoded string) bool
	Summary(encoded string) []SummaryItem
}

// New returns the hasher registered under name. iterations only applies to
// PBKDF2; zero selects DefaultIterations.
func New(name string, iterations int) (Hasher, error) {
	switch name {
	case AlgorithmPBKDF2, "":
		if iterations <= 0 {
			iterations = DefaultIterations
		}
		return &PBKDF2Hasher{Iterations: iterations}, nil
	case AlgorithmBCrypt:
		return &BCryptHasher{Cost: bcrypt.DefaultCost}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Check verifies password against encoded, picking the algorithm from the
// encoded prefix. Unusable and empty encodings never match.
func Check(password, encoded string) bool {
	if !IsUsable(encoded) || encoded == "" {
		return false
	}
	h, err := identify(encoded)
	if err != nil {
		return false
	}
	return h.Verify(password, encoded)
}

// IsUsable reports whether encoded may ever verify.
func IsUsable(encoded string) bool {
	return !strings.HasPrefix(encoded, UnusablePrefix)
}

// MakeUnusable returns a random marker that never verifies.
func MakeUnusable() string {
	suffix, err := common.MakeRandString(unusableSuffixLen)
	if err != nil {
		return UnusablePrefix
	}
	return UnusablePrefix + suffix
}

// Summary describes encoded for display. Unknown or unusable values yield a
// single explanatory item.
func Summary(encoded string) []SummaryItem {
	if encoded == "" || !IsUsable(encoded) {
		return []SummaryItem{{Label: "password", Value: "No password set."}}
	}
	h, err := identify(encoded)
	if err != nil {
		return []SummaryItem{{Label: "password", Value: "Invalid password format or unknown hashing algorithm."}}
	}
	return h.Summary(encoded)
}

// NeedsRehash reports whether encoded was produced with a different
// algorithm or weaker parameters than h.
func NeedsRehash(h Hasher, encoded string) bool {
	algorithm, _, _ := strings.Cut(encoded, "$")
	if algorithm != h.Algorithm() {
		return true
	}
	if p, ok := h.(*PBKDF2Hasher); ok {
		parts := strings.SplitN(encoded, "$", 4)
		if len(parts) != 4 {
			return true
		}
		iterations, err := strconv.Atoi(parts[1])
		return err != nil || iterations != p.Iterations
	}
	return false
}

func identify(encoded string) (Hasher, error) {
	algorithm, _, found := strings.Cut(encoded, "$")
	if !found {
		return nil, ErrUnknownAlgorithm
	}
	switch algorithm {
	case AlgorithmPBKDF2:
		return &PBKDF2Hasher{}, nil
	case AlgorithmBCrypt:
		return &BCryptHasher{}, nil
	}
	return nil, ErrUnknownAlgorithm
}

func mask(s string, show int) string {
	if len(s) <= show {
		return strings.Repeat("*", len(s))
	}
	return s[:show] + strings.Repeat("*", len(s)-show)
}

// PBKDF2Hasher encodes as pbkdf2_sha256$<iterations>$<salt>$<base64 hash>.
type PBKDF2Hasher struct {
	Iterations int
}

func (h *PBKDF2Hasher) Algorithm() string { return AlgorithmPBKDF2 }

func (h *PBKDF2Hasher) Encode(password string) (string, error) {
	salt, err := common.MakeRandString(saltLength)
	if err != nil {
		return "", err
	}
	return h.encode(password, salt, h.Iterations)
}

func (h *PBKDF2Hasher) encode(password, salt string, iterations int) (string, error) {
	if iterations < minPBKDF2Iterations {
		return "", fmt.Errorf("invalid iteration count %d", iterations)
	}
	if strings.Contains(salt, "$") {
		return "", errors.New("salt must not contain '$'")
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, pbkdf2KeyLength, sha256.New)
	hash := base64.StdEncoding.EncodeToString(key)
	return fmt.Sprintf("%s$%d$%s$%s", AlgorithmPBKDF2, iterations, salt, hash), nil
}

func (h *PBKDF2Hasher) Verify(password, encoded string) bool {
	parts := strings.SplitN(encoded, "$", 4)
	if len(parts) != 4 || parts[0] != AlgorithmPBKDF2 {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	candidate, err := h.encode(password, parts[2], iterations)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(encoded)) == 1
}

func (h *PBKDF2Hasher) Summary(encoded string) []SummaryItem {
	parts := strings.SplitN(encoded, "$", 4)
	if len(parts) != 4 {
		return []SummaryItem{{Label: "algorithm", Value: AlgorithmPBKDF2}}
	}
	return []SummaryItem{
		{Label: "algorithm", Value: parts[0]},
		{Label: "iterations", Value: parts[1]},
		{Label: "salt", Value: mask(parts[2], 6)},
		{Label: "hash", Value: mask(parts[3], 6)},
	}
}

// BCryptHasher encodes as bcrypt$<bcrypt hash>.
type BCryptHasher struct {
	Cost int
}

func (h *BCryptHasher) Algorithm() string { return AlgorithmBCrypt }

func (h *BCryptHasher) Encode(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", common.Validationf("password: bcrypt accepts at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("cannot hash password: %w", err)
	}
	return AlgorithmBCrypt + "$" + string(hash), nil
}

func (h *BCryptHasher) Verify(password, encoded string) bool {
	data, found := strings.CutPrefix(encoded, AlgorithmBCrypt+"$")
	if !found {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(data), []byte(password)) == nil
}

func (h *BCryptHasher) Summary(encoded string) []SummaryItem {
	data := strings.TrimPrefix(encoded, AlgorithmBCrypt+"$")
	items := []SummaryItem{{Label: "algorithm", Value: AlgorithmBCrypt}}
	if cost, err := bcrypt.Cost([]byte(data)); err == nil {
		items = append(items, SummaryItem{Label: "work factor", Value: strconv.Itoa(cost)})
	}
	return append(items, SummaryItem{Label: "checksum", Value: mask(data, 7)})
}
