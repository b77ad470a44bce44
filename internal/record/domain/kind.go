package domain

import (
	"strings"

	"github.com/herbaltrace/ledgersync/internal/errors"
)

// Kind identifies one of the record families mirrored to the ledger.
type Kind string

const (
	KindCollectionEvent Kind = "collection_event"
	KindBatch           Kind = "batch"
	KindQualityTest     Kind = "quality_test"
	KindProduct         Kind = "product"
)

// Kinds lists every kind in dependency order: parents before the records that reference them.
var Kinds = []Kind{KindCollectionEvent, KindBatch, KindQualityTest, KindProduct}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCollectionEvent, KindBatch, KindQualityTest, KindProduct:
		return true
	}
	return false
}

// Table returns the name of the table holding records of this kind.
func (k Kind) Table() string {
	switch k {
	case KindCollectionEvent:
		return "collection_events"
	case KindBatch:
		return "batches"
	case KindQualityTest:
		return "quality_tests"
	case KindProduct:
		return "products"
	}
	return ""
}

// LedgerType returns the document type name used on the ledger (e.g. "CollectionEvent").
func (k Kind) LedgerType() string {
	switch k {
	case KindCollectionEvent:
		return "CollectionEvent"
	case KindBatch:
		return "Batch"
	case KindQualityTest:
		return "QualityTest"
	case KindProduct:
		return "Product"
	}
	return ""
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts the snake case kind ("quality_test"), its ledger type name
// ("QualityTest") or a hyphenated form ("quality-test").
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, k := range Kinds {
		if normalized == string(k) || normalized == strings.ToLower(k.LedgerType()) {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}
