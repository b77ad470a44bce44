package service

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperledger/fabric-gateway/pkg/identity"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
)

// Identity is a signing identity loaded from the wallet.
type Identity struct {
	Label       string
	MSPID       string
	Certificate *x509.Certificate
	PrivateKey  crypto.PrivateKey
}

// Wallet resolves identity labels to signing identities.
type Wallet interface {
	Identity(ctx context.Context, label string) (*Identity, error)
}

// walletEntry is the <label>.id file layout written by the Fabric Node SDK file system wallet.
// privateKeyCiphertext, when present, replaces privateKey and is decrypted with the keeper.
type walletEntry struct {
	Credentials struct {
		Certificate          string `json:"certificate"`
		PrivateKey           string `json:"privateKey"`
		PrivateKeyCiphertext string `json:"privateKeyCiphertext"`
	} `json:"credentials"`
	MSPID   string `json:"mspId"`
	Type    string `json:"type"`
	Version int    `json:"version"`
}

// FileWallet reads identities from a directory of <label>.id files.
type FileWallet struct {
	dir    string
	keeper Decrypter
}

// NewFileWallet creates a FileWallet rooted at dir. keeper may be nil when no private key
// is stored encrypted.
func NewFileWallet(dir string, keeper Decrypter) *FileWallet {
	return &FileWallet{dir: dir, keeper: keeper}
}

// Identity loads and parses the identity stored under label.
func (w *FileWallet) Identity(ctx context.Context, label string) (*Identity, error) {
	if label == "" || strings.ContainsAny(label, `/\`) || label != filepath.Clean(label) {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "invalid label %q", label)
	}

	data, err := os.ReadFile(filepath.Join(w.dir, label+".id"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "%q", label)
		}
		return nil, apperrors.Wrapf(err, "failed to read identity %q", label)
	}

	var entry walletEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "identity %q is not valid JSON: %v", label, err)
	}
	if entry.Type != "" && entry.Type != "X.509" {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "identity %q has unsupported type %q", label, entry.Type)
	}
	if entry.MSPID == "" {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "identity %q has no mspId", label)
	}

	certificate, err := identity.CertificateFromPEM([]byte(entry.Credentials.Certificate))
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "identity %q certificate: %v", label, err)
	}

	keyPEM, err := w.privateKeyPEM(ctx, label, &entry)
	if err != nil {
		return nil, err
	}
	privateKey, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "identity %q private key: %v", label, err)
	}

	return &Identity{
		Label:       label,
		MSPID:       entry.MSPID,
		Certificate: certificate,
		PrivateKey:  privateKey,
	}, nil
}

func (w *FileWallet) privateKeyPEM(ctx context.Context, label string, entry *walletEntry) ([]byte, error) {
	if entry.Credentials.PrivateKeyCiphertext == "" {
		return []byte(entry.Credentials.PrivateKey), nil
	}
	if w.keeper == nil {
		return nil, apperrors.Wrapf(
			ledgerDomain.ErrIdentityNotFound,
			"identity %q has an encrypted private key and no keeper is configured",
			label,
		)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(entry.Credentials.PrivateKeyCiphertext)
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "identity %q ciphertext: %v", label, err)
	}
	plaintext, err := w.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		// The keeper is usually a remote KMS; treat its failures as retryable.
		return nil, apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "decrypt identity %q: %v", label, err)
	}
	return plaintext, nil
}
