package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/navaudit/internal/auditor"
	"github.com/ginjaninja78/navaudit/internal/xlsxparser"
)

// schemaTemplateCmd writes the transaction schema in use as an XLSX template
// that --schema-xlsx reads back.
var schemaTemplateCmd = &cobra.Command{
	Use:   "schema-template <file.xlsx>",
	Short: "Write the transaction column schema as an XLSX template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := auditor.DefaultTransactionSchema()
		if appConfig.Transactions.SchemaXLSX != "" {
			a, err := auditorFor()
			if err != nil {
				return err
			}
			schema = a.TransactionSchema()
		}

		if err := xlsxparser.WriteTemplate(schema, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema template with %d column(s) written to %s\n", len(schema.Names), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaTemplateCmd)
}
