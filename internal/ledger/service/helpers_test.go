package service

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// generateLocalSecretsURI generates a base64key:// URI for testing.
func generateLocalSecretsURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

// generateCredentials returns a PEM certificate and PKCS#8 private key for commonName.
func generateCredentials(t *testing.T, commonName string) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,

		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})
	return certPEM, keyPEM
}

// writeIdentity writes a <label>.id wallet file. When ciphertext is set it replaces the
// plaintext private key.
func writeIdentity(t *testing.T, dir, label, mspID string, certPEM, keyPEM, ciphertext []byte) {
	t.Helper()

	credentials := map[string]string{"certificate": string(certPEM)}
	if ciphertext != nil {
		credentials["privateKeyCiphertext"] = base64.StdEncoding.EncodeToString(ciphertext)
	} else {
		credentials["privateKey"] = string(keyPEM)
	}

	data, err := json.Marshal(map[string]any{
		"credentials": credentials,
		"mspId":       mspID,
		"type":        "X.509",
		"version":     1,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, label+".id"), data, 0o600))
}
