package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/google/uuid"

	provenanceDomain "github.com/herbaltrace/ledgersync/internal/provenance/domain"
	provenanceUseCase "github.com/herbaltrace/ledgersync/internal/provenance/usecase"
)

// RunProvenance prints the provenance view of a record, optionally cross-checked against
// the ledger.
func RunProvenance(
	ctx context.Context,
	provenanceUseCase provenanceUseCase.ProvenanceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	id string,
	live bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	rootID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}

	view, err := provenanceUseCase.GetProvenance(ctx, rootID, provenanceDomain.Options{Live: live})
	if err != nil {
		return fmt.Errorf("failed to get provenance: %w", err)
	}

	logger.Info("provenance assembled",
		slog.String("root", rootID.String()),
		slog.Int("nodes", len(view.Nodes)),
		slog.Bool("verified", view.Verified),
	)

	if format == "json" {
		return writeJSON(writer, view)
	}

	_, _ = fmt.Fprintf(writer, "Provenance of %s %s\n", view.Kind, view.Root)
	_, _ = fmt.Fprintf(writer, "Verified: %t  Ledger check: %s\n\n", view.Verified, view.LedgerCheck)

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tID\tSTATE\tVERIFIED\tLEDGER CHECK\tTX")
	for _, node := range view.Nodes {
		txID := "-"
		if node.LedgerTxID != nil {
			txID = *node.LedgerTxID
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
			node.Kind, node.ID, node.SyncState, node.Verified, node.LedgerCheck, txID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, missing := range view.Missing {
		_, _ = fmt.Fprintf(writer, "Missing %s %s referenced by %s\n", missing.Kind, missing.ID, missing.ReferencedBy)
	}
	return nil
}
