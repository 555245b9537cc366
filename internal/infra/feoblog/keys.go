package feoblog

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"feedsync/internal/usecase/syncer"

	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidUserID indicates a user ID that is not a base58 ed25519 public key.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidSignature indicates a signature that is not a base58 ed25519 signature.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPrivateKey indicates a password that cannot be decoded into a key.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrKeyMismatch indicates a password that belongs to a different user ID.
	ErrKeyMismatch = errors.New("private key does not match user id")
)

const checksumSize = 4

// UserID is an ed25519 public key. Its string form is base58.
type UserID [ed25519.PublicKeySize]byte

// ParseUserID decodes a base58 user ID.
func ParseUserID(s string) (UserID, error) {
	var id UserID
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("%w: %q: %w", ErrInvalidUserID, s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("%w: %q decodes to %d bytes, want %d", ErrInvalidUserID, s, len(raw), len(id))
	}
	copy(id[:], raw)
	return id, nil
}

func (u UserID) String() string { return base58.Encode(u[:]) }

// Signature is a detached ed25519 signature. Its string form is base58.
type Signature [ed25519.SignatureSize]byte

// ParseSignature decodes a base58 signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	raw, err := base58.Decode(s)
	if err != nil {
		return sig, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if len(raw) != len(sig) {
		return sig, fmt.Errorf("%w: decodes to %d bytes, want %d", ErrInvalidSignature, len(raw), len(sig))
	}
	copy(sig[:], raw)
	return sig, nil
}

func (s Signature) String() string { return base58.Encode(s[:]) }

// Verify reports whether sig is userID's signature over record.
func Verify(userID UserID, sig Signature, record []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(userID[:]), record, sig[:])
}

// PrivateKey is an ed25519 signing key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// ParsePrivateKey decodes a password. The base58 payload is the 32 byte
// seed followed by the first 4 bytes of its SHA-512 digest. A bare seed
// without the checksum is also accepted.
func ParsePrivateKey(s string) (*PrivateKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: not base58", ErrInvalidPrivateKey)
	}
	switch len(raw) {
	case ed25519.SeedSize:
	case ed25519.SeedSize + checksumSize:
		seed, sum := raw[:ed25519.SeedSize], raw[ed25519.SeedSize:]
		if !bytes.Equal(seedChecksum(seed), sum) {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidPrivateKey)
		}
		raw = seed
	default:
		return nil, fmt.Errorf("%w: decodes to %d bytes", ErrInvalidPrivateKey, len(raw))
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(raw)}, nil
}

// GeneratePrivateKey creates a key from rand. A nil rand uses crypto/rand.
func GeneratePrivateKey(rand io.Reader) (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// String returns the password form of the key, checksum included.
func (k *PrivateKey) String() string {
	seed := k.key.Seed()
	return base58.Encode(append(seed, seedChecksum(seed)...))
}

// UserID returns the public half of the key.
func (k *PrivateKey) UserID() UserID {
	var id UserID
	copy(id[:], k.key.Public().(ed25519.PublicKey))
	return id
}

// Sign signs record.
func (k *PrivateKey) Sign(record []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.key, record))
	return sig
}

func seedChecksum(seed []byte) []byte {
	sum := sha512.Sum512(seed)
	return sum[:checksumSize]
}

// KeyPair signs records for one user. It implements syncer.Signer.
type KeyPair struct {
	userID UserID
	key    *PrivateKey
}

// NewKeyPair parses userID and password and checks that they belong together.
func NewKeyPair(userID, password string) (*KeyPair, error) {
	id, err := ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(password)
	if err != nil {
		return nil, err
	}
	if key.UserID() != id {
		return nil, fmt.Errorf("%w: expected a password for %s but found one for %s", ErrKeyMismatch, id, key.UserID())
	}
	return &KeyPair{userID: id, key: key}, nil
}

// AuthorID returns the base58 user ID.
func (kp *KeyPair) AuthorID() string { return kp.userID.String() }

// Sign returns the base58 signature of record.
func (kp *KeyPair) Sign(record []byte) (string, error) {
	return kp.key.Sign(record).String(), nil
}

// NewSigner is a syncer.SignerFactory backed by KeyPair.
func NewSigner(feed syncer.FeedConfig) (syncer.Signer, error) {
	kp, err := NewKeyPair(feed.AuthorID, feed.Secret)
	if err != nil {
		return nil, err
	}
	return kp, nil
}

var _ syncer.SignerFactory = NewSigner
