package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/doctrinekb/internal/models"
)

var (
	ingestCountry     string
	ingestWarfareType string
	ingestSource      string
	ingestJSON        bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file | s3://bucket/key | s3://bucket/prefix/]",
	Short: "Ingest a doctrine document",
	Long: `Extracts, filters, chunks and stores one document. A local path or a
single S3 object is ingested directly; an S3 prefix ending in "/" ingests
every object under it. Re-ingesting a document adds nothing new.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCountry, "country", "", "country the doctrine belongs to")
	ingestCmd.Flags().StringVar(&ingestWarfareType, "warfare-type", "", "warfare domain, e.g. Air, Naval, Cyber")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "provenance recorded with each chunk (defaults to the file name)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print results as JSON")
	_ = ingestCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	meta := models.Document{Country: ingestCountry, WarfareType: ingestWarfareType, Source: ingestSource}
	results, ingestErr := a.Documents.IngestLocation(cmd.Context(), args[0], meta)

	if ingestJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	} else {
		for _, res := range results {
			printIngestResult(cmd, res)
		}
	}
	return ingestErr
}

func printIngestResult(cmd *cobra.Command, res *models.IngestResult) {
	if res == nil {
		return
	}
	status := "ok"
	if !res.Succeeded() {
		status = "failed"
	}
	cmd.Printf("%s  run=%s country=%s warfare=%s pages=%d skipped_pages=%v written=%d skipped=%d (%s)\n",
		status, res.RunID, res.Country, res.WarfareType, res.PageCount, res.SkippedPages,
		res.ChunksWritten, res.ChunksSkipped, res.Duration)
	for _, e := range res.Errors {
		cmd.Printf("  error: %s\n", e)
	}
	if res.ArchiveURL != "" {
		cmd.Printf("  archived: %s\n", res.ArchiveURL)
	}
}
