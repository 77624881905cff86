package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strandlabs/strand/server"
	"github.com/strandlabs/strand/server/profile"
)

const greetingBanner = `
strand: conversational agent server
`

var rootCmd = &cobra.Command{
	Use:   "strand",
	Short: "A tool-using conversational agent server",
	RunE: func(_ *cobra.Command, _ []string) error {
		p := &profile.Profile{
			Addr:          viper.GetString("addr"),
			Port:          viper.GetInt("port"),
			Data:          viper.GetString("data"),
			Driver:        viper.GetString("driver"),
			DSN:           viper.GetString("dsn"),
			Model:         viper.GetString("model"),
			ModelBaseURL:  viper.GetString("model-base-url"),
			ModelAPIKey:   viper.GetString("model-api-key"),
			EmbedModel:    viper.GetString("embed-model"),
			EmbedBaseURL:  viper.GetString("embed-base-url"),
			ToolSelection: viper.GetBool("tool-selection"),
			ToolTopK:      viper.GetInt("tool-top-k"),
			MemoryEnabled: viper.GetBool("memory"),
			MemoryLimit:   viper.GetInt("memory-limit"),
			ContextBudget: viper.GetInt("context-budget"),
			MaxRounds:     viper.GetInt("max-rounds"),
			MCPServers:    viper.GetString("mcp-servers"),
			PeerURL:       viper.GetString("peer-url"),
			PeerAgentID:   viper.GetString("peer-agent-id"),
			LogLevel:      viper.GetString("log-level"),
		}
		if err := p.Validate(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		s, err := server.New(ctx, p)
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Print(greetingBanner)
		if err := s.Start(ctx); err != nil {
			slog.Error("server stopped", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	// Local overrides for development; absence is not an error.
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.String("addr", "", "bind address, empty for all interfaces")
	flags.Int("port", 8230, "HTTP listen port")
	flags.String("data", "./data", "directory for local state")
	flags.String("driver", "sqlite", "conversation store backend: sqlite, mysql, postgres")
	flags.String("dsn", "", "database connection string")
	flags.String("model", "", "chat model identifier")
	flags.String("model-base-url", "", "OpenAI-compatible chat endpoint")
	flags.String("model-api-key", "", "API key for the chat endpoint")
	flags.String("embed-model", "nomic-embed-text", "embedding model identifier")
	flags.String("embed-base-url", "", "Ollama API root for embeddings; empty reuses the chat endpoint")
	flags.Bool("tool-selection", true, "narrow the tool catalog per query")
	flags.Int("tool-top-k", 4, "size of the selected tool subset")
	flags.Bool("memory", true, "enable long-term per-user memory")
	flags.Int("memory-limit", 3, "memories retrieved per model call")
	flags.Int("context-budget", 0, "history window in characters, 0 for default")
	flags.Int("max-rounds", 8, "model invocations allowed per turn")
	flags.String("mcp-servers", "", "JSON array of stdio MCP server configs")
	flags.String("peer-url", "", "base URL of a peer agent for delegation")
	flags.String("peer-agent-id", "", "agent ID addressed on the peer")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("strand")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
