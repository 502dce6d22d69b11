package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal"
)

var (
	log *logrus.Logger

	cfgFile     string
	showVersion bool
	dumpConfig  bool

	collectionName string
	limit          int
	filename       string
	documentID     string
	chatID         string
)

var cmd = &cobra.Command{
	Use:   "chatrag",
	Short: "chatrag indexes chat transcripts and answers questions about them with retrieval augmented generation",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

var indexCmd = &cobra.Command{
	Use:     "index <file>",
	Short:   "Chunk, embed and store a transcript",
	Example: "chatrag index ./chat.txt --collection team_chat --chat-id 42",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(p *pipelineRunner) error {
			return p.index(cmd.Context(), cmd.OutOrStdout(), args[0])
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question over a collection, or run the default analysis without one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := ""
		if len(args) == 1 {
			question = args[0]
		}
		return withPipeline(cmd, func(p *pipelineRunner) error {
			return p.ask(cmd.Context(), cmd.OutOrStdout(), question)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Run a single vector search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(p *pipelineRunner) error {
			return p.search(cmd.Context(), cmd.OutOrStdout(), args[0])
		})
	},
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections and their point counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(p *pipelineRunner) error {
			return p.collections(cmd.Context(), cmd.OutOrStdout())
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("error configuring chatrag: %w", err)
		}
		out := cmd.OutOrStdout()
		return writeConfig(out, cfg, isTerminal(out))
	},
}

var dumpJSONSchemaCmd = &cobra.Command{
	Use:     "json-schema",
	Short:   "Generates JSON Schema for the configuration file",
	Example: "chatrag json-schema > chatrag_config_schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return nil
	},
}

func init() {
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(indexCmd)
	cmd.AddCommand(askCmd)
	cmd.AddCommand(searchCmd)
	cmd.AddCommand(collectionsCmd)
	cmd.AddCommand(configCmd)
	cmd.AddCommand(dumpJSONSchemaCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")

	for _, c := range []*cobra.Command{indexCmd, askCmd, searchCmd} {
		c.Flags().
			StringVarP(&collectionName, "collection", "c", "", "collection name (default retrieval.default_collection)")
	}
	askCmd.Flags().IntVarP(&limit, "limit", "l", 0, "passages per probe (default retrieval.rag_limit)")
	searchCmd.Flags().IntVarP(&limit, "limit", "l", 0, "number of results (default retrieval.search_limit)")

	indexCmd.Flags().StringVar(&filename, "filename", "", "filename stored with each chunk (default the file's base name)")
	indexCmd.Flags().StringVar(&documentID, "document-id", "", "document id stored with each chunk")
	indexCmd.Flags().StringVar(&chatID, "chat-id", "", "chat id stored with each chunk")
}

// Execute executes the root cobra command.
func Execute() {
	log = internal.GetLogger()
	log.SetLevel(logrus.InfoLevel)

	err := cmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}
