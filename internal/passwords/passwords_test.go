package passwords

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/customuser/internal/common"
)

func fastPBKDF2() *PBKDF2Hasher { return &PBKDF2Hasher{Iterations: 1000} }
func fastBCrypt() *BCryptHasher { return &BCryptHasher{Cost: bcrypt.MinCost} }

func TestNew(t *testing.T) {
	h, err := New("", 0)
	require.NoError(t, err)
	require.Equal(t, AlgorithmPBKDF2, h.Algorithm())
	assert.Equal(t, DefaultIterations, h.(*PBKDF2Hasher).Iterations)

	h, err = New(AlgorithmPBKDF2, 1200)
	require.NoError(t, err)
	assert.Equal(t, 1200, h.(*PBKDF2Hasher).Iterations)

	h, err = New(AlgorithmBCrypt, 0)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmBCrypt, h.Algorithm())

	_, err = New("md5", 0)
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
}

func TestPBKDF2_EncodeAndCheck(t *testing.T) {
	h := fastPBKDF2()

	encoded, err := h.Encode("pwd123")
	require.NoError(t, err)

	parts := strings.Split(encoded, "$")
	require.Len(t, parts, 4)
	assert.Equal(t, "pbkdf2_sha256", parts[0])
	assert.Equal(t, "1000", parts[1])
	assert.Len(t, parts[2], saltLength)

	assert.True(t, Check("pwd123", encoded))
	assert.False(t, Check("pwd124", encoded))
	assert.False(t, Check("", encoded))

	other, err := h.Encode("pwd123")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, other, "salts must differ")
}

func TestPBKDF2_KnownVector(t *testing.T) {
	h := fastPBKDF2()
	encoded, err := h.encode("password", "seasalt", 1000)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "pbkdf2_sha256$1000$seasalt$"))
	assert.True(t, h.Verify("password", encoded))
}

func TestPBKDF2_Invalid(t *testing.T) {
	h := fastPBKDF2()
	_, err := h.encode("x", "salt", 0)
	assert.Error(t, err)
	_, err = h.encode("x", "sa$lt", 10)
	assert.Error(t, err)

	assert.False(t, h.Verify("x", "pbkdf2_sha256$abc$salt$hash"))
	assert.False(t, h.Verify("x", "bcrypt$whatever"))
}

func TestBCrypt_EncodeAndCheck(t *testing.T) {
	h := fastBCrypt()
	encoded, err := h.Encode("pwd123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "bcrypt$$2a$"))

	assert.True(t, Check("pwd123", encoded))
	assert.False(t, Check("wrong", encoded))
	assert.False(t, h.Verify("pwd123", strings.TrimPrefix(encoded, "bcrypt$")))
}

func TestBCrypt_TooLongIsValidationError(t *testing.T) {
	_, err := fastBCrypt().Encode(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = fastBCrypt().Encode(strings.Repeat("x", 72))
	assert.NoError(t, err)
}

func TestUnusable(t *testing.T) {
	u := MakeUnusable()
	assert.True(t, strings.HasPrefix(u, UnusablePrefix))
	assert.Len(t, u, 1+unusableSuffixLen)
	assert.False(t, IsUsable(u))
	assert.False(t, Check("", u))
	assert.False(t, Check(u, u))
}

func TestCheck_UnknownFormats(t *testing.T) {
	assert.False(t, Check("x", ""))
	assert.False(t, Check("x", "plaintext"))
	assert.False(t, Check("x", "md5$salt$hash"))
}

func TestSummary(t *testing.T) {
	encoded, err := fastPBKDF2().Encode("pwd123")
	require.NoError(t, err)

	items := Summary(encoded)
	require.Len(t, items, 4)
	assert.Equal(t, SummaryItem{Label: "algorithm", Value: "pbkdf2_sha256"}, items[0])
	assert.Equal(t, SummaryItem{Label: "iterations", Value: "1000"}, items[1])
	assert.NotContains(t, items[3].Value, strings.Split(encoded, "$")[3], "hash must be masked")

	bc, err := fastBCrypt().Encode("pwd123")
	require.NoError(t, err)
	items = Summary(bc)
	assert.Equal(t, "bcrypt", items[0].Value)
	assert.Equal(t, SummaryItem{Label: "work factor", Value: "4"}, items[1])

	assert.Equal(t, "No password set.", Summary(MakeUnusable())[0].Value)
	assert.Equal(t, "No password set.", Summary("")[0].Value)
	assert.Contains(t, Summary("garbage")[0].Value, "unknown hashing algorithm")
}

func TestNeedsRehash(t *testing.T) {
	weak := &PBKDF2Hasher{Iterations: 1000}
	strong := &PBKDF2Hasher{Iterations: 2000}

	encoded, err := weak.Encode("pwd")
	require.NoError(t, err)

	assert.False(t, NeedsRehash(weak, encoded))
	assert.True(t, NeedsRehash(strong, encoded))
	assert.True(t, NeedsRehash(fastBCrypt(), encoded))
}
