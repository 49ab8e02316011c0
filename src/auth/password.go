package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/newsdesk-cms/newsdesk/src/oops"
	"golang.org/x/crypto/argon2"
)

type HashAlgorithm string

const Argon2id HashAlgorithm = "argon2id"

const saltLength = 16
const keyLength = 64

/*
HashedPassword is stored in the account row as "algo$config$salt$hash". Salt
and hash are base64, so the string never contains a stray '$'.
*/
type HashedPassword struct {
	Algorithm  HashAlgorithm
	AlgoConfig string
	Salt       string
	Hash       string
}

func ParsePasswordString(s string) (HashedPassword, error) {
	pieces := strings.SplitN(s, "$", 4)
	if len(pieces) < 4 {
		return HashedPassword{}, oops.New(nil, "unrecognized password string format")
	}

	return HashedPassword{
		Algorithm:  HashAlgorithm(pieces[0]),
		AlgoConfig: pieces[1],
		Salt:       pieces[2],
		Hash:       pieces[3],
	}, nil
}

func (p HashedPassword) String() string {
	return fmt.Sprintf("%s$%s$%s$%s", p.Algorithm, p.AlgoConfig, p.Salt, p.Hash)
}

type Argon2idConfig struct {
	Time      uint32
	Memory    uint32
	Threads   uint8
	KeyLength uint32
}

// Parses configs of the form "t=1,m=40960,p=1,l=64".
func ParseArgon2idConfig(cfg string) (Argon2idConfig, error) {
	parts := strings.Split(cfg, ",")
	if len(parts) != 4 {
		return Argon2idConfig{}, oops.New(nil, "expected 4 parts in Argon2id config, got %d", len(parts))
	}

	values := make([]uint64, 4)
	for i, bits := range []int{32, 32, 8, 32} {
		_, raw, found := strings.Cut(parts[i], "=")
		if !found {
			return Argon2idConfig{}, oops.New(nil, "malformed Argon2id config part %q", parts[i])
		}
		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil {
			return Argon2idConfig{}, oops.New(err, "failed to parse Argon2id config part %q", parts[i])
		}
		values[i] = v
	}

	return Argon2idConfig{
		Time:      uint32(values[0]),
		Memory:    uint32(values[1]),
		Threads:   uint8(values[2]),
		KeyLength: uint32(values[3]),
	}, nil
}

func (c Argon2idConfig) String() string {
	return fmt.Sprintf("t=%v,m=%v,p=%v,l=%v", c.Time, c.Memory, c.Threads, c.KeyLength)
}

func CheckPassword(password string, hashedPassword HashedPassword) (bool, error) {
	if hashedPassword.Algorithm != Argon2id {
		return false, oops.New(nil, "unrecognized password hash algorithm: %s", hashedPassword.Algorithm)
	}

	cfg, err := ParseArgon2idConfig(hashedPassword.AlgoConfig)
	if err != nil {
		return false, err
	}

	salt, err := base64.StdEncoding.DecodeString(hashedPassword.Salt)
	if err != nil {
		return false, oops.New(err, "failed to decode salt")
	}

	newHash := argon2.IDKey([]byte(password), salt, cfg.Time, cfg.Memory, cfg.Threads, cfg.KeyLength)
	newHashEnc := base64.StdEncoding.EncodeToString(newHash)

	return subtle.ConstantTimeCompare([]byte(newHashEnc), []byte(hashedPassword.Hash)) == 1, nil
}

// CheckPasswordString is CheckPassword for the encoded form stored on accounts.
func CheckPasswordString(password string, encoded string) (bool, error) {
	hp, err := ParsePasswordString(encoded)
	if err != nil {
		return false, err
	}
	return CheckPassword(password, hp)
}

func HashPassword(password string) HashedPassword {
	// OWASP recommendation for Argon2id, March 2021.
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		panic(oops.New(err, "failed to read random salt"))
	}
	saltEnc := base64.StdEncoding.EncodeToString(salt)

	cfg := Argon2idConfig{
		Time:      1,
		Memory:    40 * 1024, // KiB
		Threads:   1,
		KeyLength: keyLength,
	}

	key := argon2.IDKey([]byte(password), salt, cfg.Time, cfg.Memory, cfg.Threads, cfg.KeyLength)
	keyEnc := base64.StdEncoding.EncodeToString(key)

	return HashedPassword{
		Algorithm:  Argon2id,
		AlgoConfig: cfg.String(),
		Salt:       saltEnc,
		Hash:       keyEnc,
	}
}
