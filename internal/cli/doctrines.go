package cli

import (
	"github.com/spf13/cobra"
)

var doctrinesCmd = &cobra.Command{
	Use:   "doctrines",
	Short: "List ingested doctrines",
	Args:  cobra.NoArgs,
	RunE:  runDoctrines,
}

func init() {
	rootCmd.AddCommand(doctrinesCmd)
}

func runDoctrines(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.Doctrines.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		cmd.Println("No doctrines ingested yet.")
		return nil
	}

	cmd.Printf("%-24s %-16s %s\n", "COUNTRY", "WARFARE", "CHUNKS")
	for _, d := range docs {
		n, err := a.Doctrines.Count(cmd.Context(), d.Country, d.WarfareType)
		if err != nil {
			return err
		}
		warfare := d.WarfareType
		if warfare == "" {
			warfare = "-"
		}
		cmd.Printf("%-24s %-16s %d\n", d.Country, warfare, n)
	}
	return nil
}
