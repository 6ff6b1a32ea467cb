package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importPersonnelCmd = &cobra.Command{
	Use:   "import-personnel [file.csv]",
	Short: "Import military personnel figures by country",
	Long: `Loads the "military personnel by country" table. Countries already
present are kept as they are.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportPersonnel,
}

func init() {
	rootCmd.AddCommand(importPersonnelCmd)
}

func runImportPersonnel(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	parsed, inserted, err := a.Personnel.Import(cmd.Context(), f)
	if err != nil {
		return err
	}
	cmd.Printf("Imported %d of %d rows (%d already present).\n", inserted, parsed, parsed-inserted)
	return nil
}
