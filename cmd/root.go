package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kbchat",
	Short: "A chat assistant backed by a managed knowledge base",
	Long: `kbchat serves a chat UI and API that answers questions grounded in
a Bedrock knowledge base, stores the source PDFs in object storage and keeps
the knowledge base in sync with uploaded documents.`,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	settingDefaultConfig()
}
