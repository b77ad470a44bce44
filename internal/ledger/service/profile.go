package service

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
)

// profileExtensions are tried in order for connection-<org>.<ext>. YAML is a superset of
// JSON so a single decoder reads every variant.
var profileExtensions = []string{".json", ".yaml", ".yml"}

// Endpoint is the peer a session dials for one organization.
type Endpoint struct {
	Organization       string
	MSPID              string
	Address            string
	TLS                bool
	TLSCACert          *x509.CertPool
	ServerNameOverride string
}

type connectionProfile struct {
	Name          string                        `yaml:"name"`
	Organizations map[string]profileOrganization `yaml:"organizations"`
	Peers         map[string]profilePeer         `yaml:"peers"`
}

type profileOrganization struct {
	MSPID string   `yaml:"mspid"`
	Peers []string `yaml:"peers"`
}

type profilePeer struct {
	URL        string `yaml:"url"`
	TLSCACerts struct {
		PEM  string `yaml:"pem"`
		Path string `yaml:"path"`
	} `yaml:"tlsCACerts"`
	GRPCOptions map[string]any `yaml:"grpcOptions"`
}

// ProfileLoader reads organization connection profiles from a directory.
type ProfileLoader struct {
	dir string
}

// NewProfileLoader creates a ProfileLoader rooted at dir.
func NewProfileLoader(dir string) *ProfileLoader {
	return &ProfileLoader{dir: dir}
}

// Endpoint loads connection-<organization>.json (or .yaml) and resolves the first peer
// of the organization.
func (l *ProfileLoader) Endpoint(organization string) (*Endpoint, error) {
	if organization == "" || strings.ContainsAny(organization, `/\.`) {
		return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "invalid organization %q", organization)
	}

	data, path, err := l.read(organization)
	if err != nil {
		return nil, err
	}

	var profile connectionProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: %v", path, err)
	}

	org, ok := lookupOrganization(profile.Organizations, organization)
	if !ok {
		return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: organization %q not declared", path, organization)
	}
	if org.MSPID == "" {
		return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: organization %q has no mspid", path, organization)
	}

	peerName, peer, err := firstPeer(profile, org)
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: %v", path, err)
	}

	endpoint, err := l.endpointFromPeer(path, peerName, peer)
	if err != nil {
		return nil, err
	}
	endpoint.Organization = organization
	endpoint.MSPID = org.MSPID
	return endpoint, nil
}

func (l *ProfileLoader) read(organization string) ([]byte, string, error) {
	base := "connection-" + strings.ToLower(organization)
	for _, ext := range profileExtensions {
		path := filepath.Join(l.dir, base+ext)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: %v", path, err)
		}
	}
	return nil, "", apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "no connection profile for %q in %s", organization, l.dir)
}

func (l *ProfileLoader) endpointFromPeer(path, peerName string, peer profilePeer) (*Endpoint, error) {
	parsed, err := url.Parse(peer.URL)
	if err != nil || parsed.Host == "" {
		return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: peer %q has invalid url %q", path, peerName, peer.URL)
	}

	endpoint := &Endpoint{Address: parsed.Host}
	switch parsed.Scheme {
	case "grpcs":
		endpoint.TLS = true
	case "grpc":
		endpoint.TLS = false
	default:
		return nil, apperrors.Wrapf(
			ledgerDomain.ErrProfileInvalid,
			"%s: peer %q url scheme %q is not grpc or grpcs",
			path,
			peerName,
			parsed.Scheme,
		)
	}

	if override, ok := peer.GRPCOptions["ssl-target-name-override"].(string); ok {
		endpoint.ServerNameOverride = override
	}

	if !endpoint.TLS {
		return endpoint, nil
	}

	pemData := []byte(peer.TLSCACerts.PEM)
	if len(pemData) == 0 && peer.TLSCACerts.Path != "" {
		caPath := peer.TLSCACerts.Path
		if !filepath.IsAbs(caPath) {
			caPath = filepath.Join(l.dir, caPath)
		}
		pemData, err = os.ReadFile(caPath) //nolint:gosec
		if err != nil {
			return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: peer %q tls ca: %v", path, peerName, err)
		}
	}
	if len(pemData) == 0 {
		return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: peer %q has no tlsCACerts", path, peerName)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, apperrors.Wrapf(ledgerDomain.ErrProfileInvalid, "%s: peer %q tlsCACerts is not PEM", path, peerName)
	}
	endpoint.TLSCACert = pool
	return endpoint, nil
}

// lookupOrganization matches the organization key case-insensitively.
func lookupOrganization(orgs map[string]profileOrganization, name string) (profileOrganization, bool) {
	if org, ok := orgs[name]; ok {
		return org, true
	}
	for key, org := range orgs {
		if strings.EqualFold(key, name) {
			return org, true
		}
	}
	return profileOrganization{}, false
}

func firstPeer(profile connectionProfile, org profileOrganization) (string, profilePeer, error) {
	for _, name := range org.Peers {
		if peer, ok := profile.Peers[name]; ok {
			return name, peer, nil
		}
	}
	if len(org.Peers) > 0 {
		return "", profilePeer{}, fmt.Errorf("peers %v are not declared", org.Peers)
	}

	// Single-organization profiles often omit the peer list.
	names := make([]string, 0, len(profile.Peers))
	for name := range profile.Peers {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", profilePeer{}, errors.New("no peers declared")
	}
	sort.Strings(names)
	return names[0], profile.Peers[names[0]], nil
}
