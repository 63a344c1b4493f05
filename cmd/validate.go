// =============================================================================
// navaudit - Validate Config Command
// =============================================================================
//
// COMMAND USAGE:
//   navaudit validate-config [--config path]
//
// Loads the configuration, applies the defaults, validates it and builds an
// auditor from it, so a bad delimiter, an unreadable schema template or an
// unknown duplicate key column is caught before any file is audited.
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/navaudit/internal/config"
	"github.com/ginjaninja78/navaudit/pkg/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate the configuration without auditing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		source := cfgFile
		if !utils.FileExists(cfgFile) {
			source = "built-in defaults (" + cfgFile + " not found)"
		}

		if err := config.Validate(appConfig); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		a, err := auditorFor()
		if err != nil {
			return err
		}
		schema := a.TransactionSchema()

		cfg := appConfig
		fmt.Fprintf(out, "Configuration: %s\n", source)
		fmt.Fprintf(out, "NAV file:              %s (delimiter %q, at least %d fields)\n",
			cfg.NAV.File, cfg.NAV.Delimiter, cfg.NAV.MinFields)
		fmt.Fprintf(out, "Transaction file:      %s (delimiter %q, %s fields)\n",
			cfg.Transactions.File, cfg.Transactions.Delimiter, schema.Describe())
		fmt.Fprintf(out, "Accepted year prefixes: %s\n", strings.Join(cfg.Transactions.YearPrefixes, ", "))
		fmt.Fprintf(out, "Duplicate key:         %s\n", strings.Join(cfg.Transactions.DuplicateKey, ", "))
		fmt.Fprintf(out, "Output:                %s in %s\n", cfg.Output.Format, cfg.Output.Dir)
		fmt.Fprintln(out, "Configuration is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
