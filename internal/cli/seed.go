package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/practice2025/supportai/internal/app"
	"github.com/practice2025/supportai/internal/docstore"
)

var seedCorpus string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the Elasticsearch index and load a corpus into it",
	Long: `Creates the configured index with its mapping when missing and indexes the documents
from --corpus, or the built-in sample corpus when no file is given.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedCorpus, "corpus", "", "YAML corpus file")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	docs := docstore.DefaultCorpus
	if seedCorpus != "" {
		docs, err = docstore.LoadCorpus(seedCorpus)
		if err != nil {
			return err
		}
	}

	es, err := docstore.NewElasticsearch(app.DocstoreOptions(cfg).Elasticsearch)
	if err != nil {
		return fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	ctx := cmd.Context()
	if err := es.EnsureIndex(ctx); err != nil {
		return err
	}

	if err := es.IndexDocuments(ctx, docs); err != nil {
		return err
	}

	cmd.Printf("Indexed %d documents into %s\n", len(docs), cfg.ElasticsearchIndex)
	return nil
}
