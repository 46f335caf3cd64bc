package auth

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
)

// Two-factor token bounds. Clients reject tokens outside this range before
// submission; the server enforces the same bound before any verification
// runs.
const (
	TwoFactorTokenMinLen = 4
	TwoFactorTokenMaxLen = 10

	backupCodeCount = 8
	backupCodeLen   = 10
)

const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TwoFactorSetup holds a freshly generated TOTP enrollment: the shared
// secret, the otpauth:// provisioning URL, and one-time backup codes. The
// plain backup codes are shown to the user once; only their hashes are
// persisted.
type TwoFactorSetup struct {
	Secret      string   `json:"secret"`
	URL         string   `json:"url"`
	BackupCodes []string `json:"backupCodes"`
}

// GenerateTwoFactorSetup creates a new TOTP secret and backup codes for the
// given account email.
func GenerateTwoFactorSetup(email string) (*TwoFactorSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Signet",
		AccountName: email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	codes := make([]string, backupCodeCount)
	for i := range codes {
		code, err := randomBackupCode()
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}

	return &TwoFactorSetup{
		Secret:      key.Secret(),
		URL:         key.URL(),
		BackupCodes: codes,
	}, nil
}

func randomBackupCode() (string, error) {
	buf := make([]byte, backupCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate backup code: %w", err)
	}
	for i, b := range buf {
		buf[i] = backupCodeAlphabet[int(b)%len(backupCodeAlphabet)]
	}
	return string(buf), nil
}

// HashBackupCodes bcrypt-hashes each plain backup code for storage.
func HashBackupCodes(codes []string) ([]string, error) {
	hashes := make([]string, len(codes))
	for i, code := range codes {
		h, err := HashPassword(normalizeToken(code))
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	return hashes, nil
}

// ValidateTwoFactorTokenFormat enforces the 4-10 character bound on a
// submitted two-factor token. It returns ErrTwoFactorTokenFormat without
// touching the TOTP secret when the bound is violated.
func ValidateTwoFactorTokenFormat(token string) error {
	n := len(normalizeToken(token))
	if n < TwoFactorTokenMinLen || n > TwoFactorTokenMaxLen {
		return ErrTwoFactorTokenFormat
	}
	return nil
}

// VerifyTwoFactorToken checks a submitted token against the account's TOTP
// secret, falling back to backup codes. It returns the index of the
// consumed backup code, or -1 when the token matched as TOTP. Format is
// validated first; out-of-bound tokens never reach verification.
func VerifyTwoFactorToken(token, secret string, backupCodeHashes []string) (consumedBackup int, err error) {
	if err := ValidateTwoFactorTokenFormat(token); err != nil {
		return -1, err
	}
	token = normalizeToken(token)

	if secret != "" && totp.Validate(token, secret) {
		return -1, nil
	}
	for i, hash := range backupCodeHashes {
		if hash != "" && CheckPasswordHash(token, hash) {
			return i, nil
		}
	}
	return -1, ErrTwoFactorTokenInvalid
}

func normalizeToken(token string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(token), " ", ""))
}
