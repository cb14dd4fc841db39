// Package core provides the ingestion and validation engine for exoplanet
// transit observations.
//
// The package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the exoctl CLI and tests alike.
//
// # Architecture
//
// Leaves first:
//
//   - Record model: [Observation], [FormInput] and the owned, versioned
//     [Collection].
//   - Field validator: [ValidateFields] and [CheckFields], an ordered rule
//     table that collects every failed check.
//   - CSV codec: [EncodeCSV] for export and [SplitRow], the quote-aware row
//     tokenizer used by import.
//   - Import orchestrator: [ImportCSV] folds over the lines of a file and
//     partitions rows into successes and [FailedRow] entries.
//   - Service: owns one collection, persists it through a [Store] and wraps
//     imports with a size limit, an [ImportLimiter] and history.
//
// # Partial Success
//
// Import never aborts on a bad row. The header line is always skipped, each
// remaining non-blank line is either accepted or reported with its row
// number, and the caller merges whatever succeeded:
//
//	res := core.ImportCSV(text)
//	for _, f := range res.Failed {
//	    fmt.Printf("row %d: %s\n", f.Row, f.Error)
//	}
//
// # Persistence
//
// The Service treats storage as best-effort. A failed or corrupt load starts
// an empty collection and a failed save is logged; neither is returned to
// the caller.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference: VAL, IMP, FILE, OBS, ANL.
package core
