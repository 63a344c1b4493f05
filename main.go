// =============================================================================
// navaudit - Main Entry Point
// =============================================================================
//
// navaudit is a read-only auditor for AMFI NAV files and transaction CSV
// exports. It delegates command execution to the cmd package.
//
// USAGE:
//   navaudit nav [file]          - Audit an AMFI NAV file
//   navaudit txn [file]          - Audit a transaction export
//   navaudit batch [dir]         - Audit every matching file under a directory
//   navaudit validate-config     - Validate the configuration
//   navaudit schema-template f   - Write the transaction schema as XLSX
//   navaudit version             - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : parsing, validation, grouping, auditing and reporting
//   - pkg/utils      : file discovery, content sniffing and output files
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/navaudit/cmd"
)

func main() {
	cmd.Execute()
}
