package cli

import (
	"github.com/spf13/cobra"

	"github.com/markdave123-py/doctrinekb/internal/core/knowledge"
)

var (
	kbPostgresHost  string
	kbStorageDB     string
	kbEmbeddingURL  string
	kbEmbeddingName string
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the MindsDB knowledge base",
}

var kbSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Register the chunk store and create the knowledge base",
	Long: `Waits for MindsDB, registers the Postgres chunk store as a pgvector
database and creates the knowledge base over military_doctrines. Safe to
run more than once.`,
	Args: cobra.NoArgs,
	RunE: runKBSetup,
}

func init() {
	kbSetupCmd.Flags().StringVar(&kbPostgresHost, "pg-host", "", "database host as seen from MindsDB (defaults to the DATABASE_URL host)")
	kbSetupCmd.Flags().StringVar(&kbStorageDB, "storage-db", "military_psql", "name of the pgvector integration")
	kbSetupCmd.Flags().StringVar(&kbEmbeddingURL, "embedding-url", "http://ollama:11434", "Ollama URL as seen from MindsDB")
	kbSetupCmd.Flags().StringVar(&kbEmbeddingName, "embedding-model", "nomic-embed-text", "Ollama embedding model")
	kbCmd.AddCommand(kbSetupCmd)
	rootCmd.AddCommand(kbCmd)
}

func runKBSetup(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	pg, err := knowledge.PostgresParamsFromURL(cfg.DatabaseURL, kbPostgresHost)
	if err != nil {
		return err
	}

	client := knowledge.NewMindsDBClient(cfg, logger)
	if err := client.Setup(cmd.Context(), knowledge.SetupOptions{
		Postgres:         pg,
		StorageDatabase:  kbStorageDB,
		EmbeddingBaseURL: kbEmbeddingURL,
		EmbeddingModel:   kbEmbeddingName,
	}); err != nil {
		return err
	}
	cmd.Println("Knowledge base ready.")
	return nil
}
