package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"filippo.io/age"

	"garage-go/internal/garage"
)

// AgeStore keeps the token age-encrypted to a local X25519 identity. The
// identity is generated on the first Save and stored at identityPath; the
// ciphertext lives at tokenPath.
type AgeStore struct {
	tokenPath    string
	identityPath string
}

// NewAgeStore creates a store with the given ciphertext and identity paths.
func NewAgeStore(tokenPath, identityPath string) *AgeStore {
	return &AgeStore{tokenPath: tokenPath, identityPath: identityPath}
}

// IsConfigured reports whether an identity exists.
func (s *AgeStore) IsConfigured() bool {
	_, err := os.Stat(s.identityPath)
	return err == nil
}

// Token decrypts the stored token. A missing token file means no session.
func (s *AgeStore) Token(context.Context) (string, error) {
	ciphertext, err := os.ReadFile(s.tokenPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading token file: %w", err)
	}

	identity, err := s.loadIdentity()
	if err != nil {
		return "", fmt.Errorf("loading identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting token: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted token: %w", err)
	}
	return strings.TrimSpace(string(plain)), nil
}

// Save encrypts token to the identity's recipient, generating the identity
// if none exists yet.
func (s *AgeStore) Save(token string) error {
	identity, err := s.loadOrCreateIdentity()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, token+"\n"); err != nil {
		return fmt.Errorf("encrypting token: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return writeSecret(s.tokenPath, buf.Bytes())
}

// Clear removes the ciphertext. The identity is kept for the next login.
func (s *AgeStore) Clear() error {
	return removeIfExists(s.tokenPath)
}

func (s *AgeStore) loadOrCreateIdentity() (*age.X25519Identity, error) {
	identity, err := s.loadIdentity()
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	identity, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	content := "# garage session key\n# public key: " + identity.Recipient().String() + "\n" + identity.String() + "\n"
	if err := writeSecret(s.identityPath, []byte(content)); err != nil {
		return nil, fmt.Errorf("writing identity: %w", err)
	}
	return identity, nil
}

func (s *AgeStore) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, err
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity in %s", s.identityPath)
}

var _ garage.TokenStore = (*AgeStore)(nil)
