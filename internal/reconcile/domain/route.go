package domain

import (
	"github.com/herbaltrace/ledgersync/internal/errors"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// Route names the wallet identity and organization that sign transactions of a kind.
type Route struct {
	Identity     string
	Organization string
}

// Routes maps each kind to its default route.
type Routes map[recordDomain.Kind]Route

// Resolve returns the route for a record. A payload naming its own signer, such as a
// quality test carrying its lab identity, overrides the default identity.
func (r Routes) Resolve(record *recordDomain.Record) (Route, error) {
	route, ok := r[record.Kind]
	if !ok || route.Identity == "" || route.Organization == "" {
		return Route{}, errors.Wrapf(recordDomain.ErrUnknownKind, "no ledger route for %q", string(record.Kind))
	}
	if record.Payload != nil {
		if signer := record.Payload.Signer(); signer != "" {
			route.Identity = signer
		}
	}
	return route, nil
}
