package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
)

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestProfileLoader_Endpoint(t *testing.T) {
	dir := t.TempDir()
	caPEM, _ := generateCredentials(t, "tlsca.farmerscoop.herbaltrace.com")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tlsca.pem"), caPEM, 0o600))

	writeProfile(t, dir, "connection-farmerscoop.json", `{
  "name": "herbaltrace-network-farmerscoop",
  "organizations": {
    "FarmersCoop": {"mspid": "FarmersCoopMSP", "peers": ["peer0.farmerscoop.herbaltrace.com"]}
  },
  "peers": {
    "peer0.farmerscoop.herbaltrace.com": {
      "url": "grpcs://localhost:7051",
      "tlsCACerts": {"path": "tlsca.pem"},
      "grpcOptions": {"ssl-target-name-override": "peer0.farmerscoop.herbaltrace.com"}
    }
  }
}`)

	writeProfile(t, dir, "connection-testinglabs.yaml", `
name: herbaltrace-network-testinglabs
organizations:
  TestingLabs:
    mspid: TestingLabsMSP
peers:
  peer0.testinglabs.herbaltrace.com:
    url: grpc://localhost:9051
`)

	writeProfile(t, dir, "connection-manufacturers.json", `{
  "organizations": {"Manufacturers": {"mspid": "ManufacturersMSP", "peers": ["peer0"]}},
  "peers": {"peer0": {"url": "grpcs://localhost:11051"}}
}`)

	writeProfile(t, dir, "connection-regulators.json", `{"organizations": `)

	loader := NewProfileLoader(dir)

	t.Run("Success_TLSPeerFromJSON", func(t *testing.T) {
		endpoint, err := loader.Endpoint("FarmersCoop")
		require.NoError(t, err)
		assert.Equal(t, "FarmersCoop", endpoint.Organization)
		assert.Equal(t, "FarmersCoopMSP", endpoint.MSPID)
		assert.Equal(t, "localhost:7051", endpoint.Address)
		assert.True(t, endpoint.TLS)
		assert.NotNil(t, endpoint.TLSCACert)
		assert.Equal(t, "peer0.farmerscoop.herbaltrace.com", endpoint.ServerNameOverride)
	})

	t.Run("Success_PlaintextPeerFromYAML", func(t *testing.T) {
		endpoint, err := loader.Endpoint("TestingLabs")
		require.NoError(t, err)
		assert.Equal(t, "TestingLabsMSP", endpoint.MSPID)
		assert.Equal(t, "localhost:9051", endpoint.Address)
		assert.False(t, endpoint.TLS)
		assert.Nil(t, endpoint.TLSCACert)
	})

	tests := []struct {
		name         string
		organization string
		contains     string
	}{
		{name: "missing profile", organization: "Distributors", contains: "no connection profile"},
		{name: "malformed profile", organization: "Regulators", contains: "connection-regulators.json"},
		{name: "tls peer without ca", organization: "Manufacturers", contains: "no tlsCACerts"},
		{name: "path separator", organization: "../FarmersCoop", contains: "invalid organization"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, err := loader.Endpoint(tt.organization)
			assert.Nil(t, endpoint)
			assert.ErrorIs(t, err, ledgerDomain.ErrProfileInvalid)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
