package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/voxa-ai/voxa-sdk-go/pkg/voxa"
	"github.com/joho/godotenv"
	"github.com/goccy/go-yaml"
)

var (
	verbose   bool
	logLevel  string
	envFile   string
	apiKey    string
	agentID   string
	wsBaseURL string

	audioFile     string
	overridesFile string
	chunkBytes    int
	textOnly      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "voxa",
		Short: "Voxa SDK Go CLI",
		Long:  "A command-line interface for the Voxa conversational AI SDK",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					voxa.GetGlobalLogger().WithError(err).WithField("path", envFile).Warn("Could not load env file")
				}
			}
			if logLevel != "" {
				voxa.SetGlobalLogger(voxa.NewLogger(&voxa.LogConfig{
					Level:  voxa.ParseLogLevel(logLevel),
					Pretty: true,
					Output: os.Stderr,
				}))
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for signed URL resolution")
	rootCmd.PersistentFlags().StringVar(&agentID, "agent", "", "Agent ID to converse with")
	rootCmd.PersistentFlags().StringVar(&wsBaseURL, "ws-url", "", "WebSocket base URL override")

	// Add subcommands
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(signedURLCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		voxa.GetGlobalLogger().WithError(err).Fatal("CLI execution failed")
	}
}

// buildConfig assembles the effective config: defaults, then environment,
// then command-line flags.
func buildConfig() *voxa.Config {
	cfg := voxa.NewConfig()

	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if agentID != "" {
		cfg.AgentID = agentID
	}
	if wsBaseURL != "" {
		cfg.WSBaseURL = wsBaseURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a live conversation with an agent",
		Long:  "Connect to an agent over WebSocket, optionally stream audio from a file, and print the conversation as it happens. Press Ctrl+C to stop.",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := buildConfig()
			logger := voxa.GetGlobalLogger()

			client := voxa.NewAgentClient(cfg)

			if overridesFile != "" {
				initData := voxa.NewConversationInitData()
				if err := loadOverrides(overridesFile, initData); err != nil {
					logger.WithError(err).Fatal("Failed to load overrides file")
				}
				client.WithConversationInitData(initData)
			}

			// First Ctrl+C cancels the context, which closes the session
			// gracefully and lets the event loop below drain and return.
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var audio <-chan string
			if audioFile != "" && !textOnly {
				if audioFile == "-" {
					audio = voxa.AudioSourceFromReader(ctx, os.Stdin, chunkBytes)
				} else {
					source, err := voxa.AudioSourceFromFile(ctx, audioFile, chunkBytes)
					if err != nil {
						logger.WithError(err).Fatal("Failed to open audio file")
					}
					audio = source
				}
			}

			conv, err := client.StartConversation(ctx, audio)
			if err != nil {
				logger.WithError(err).Fatal("Failed to start conversation")
			}

			fmt.Println("Connected. Press Ctrl+C to stop.")

			collector, transcript := voxa.CreateTranscriptCollector()
			dispatchErr := voxa.DispatchEvents(conv, voxa.CreateLoggingHandlers(logger, verbose), collector)

			if lines := transcript(); len(lines) > 0 {
				fmt.Printf("\n=== Transcript ===\n")
				for _, line := range lines {
					fmt.Printf("%s: %s\n", line.Role, line.Text)
				}
			}

			if dispatchErr != nil {
				logger.WithError(dispatchErr).Error("Conversation ended with error")
				os.Exit(1)
			}
			fmt.Println("Conversation ended cleanly.")
		},
	}

	cmd.Flags().StringVar(&audioFile, "audio", "", "Raw PCM audio file to stream, or - for stdin (16-bit, 16kHz mono)")
	cmd.Flags().StringVar(&overridesFile, "overrides", "", "YAML or JSON file with conversation initiation overrides")
	cmd.Flags().IntVar(&chunkBytes, "chunk-bytes", voxa.DefaultAudioChunkBytes, "Audio chunk size in bytes")
	cmd.Flags().BoolVar(&textOnly, "text-only", false, "Receive events only, never stream audio")
	return cmd
}

func signedURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signed-url",
		Short: "Resolve a signed WebSocket URL for an agent",
		Long:  "Request a short-lived signed WebSocket URL from the REST API and print it to stdout",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := buildConfig()

			if cfg.AgentID == "" {
				voxa.GetGlobalLogger().Fatal("An agent ID is required (--agent or VOXA_AGENT_ID)")
			}
			if cfg.APIKey == "" {
				voxa.GetGlobalLogger().Fatal("An API key is required (--api-key or VOXA_API_KEY)")
			}

			api := voxa.NewAPIClientFromConfig(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			signedURL, err := api.GetSignedURL(ctx, cfg.AgentID)
			if err != nil {
				voxa.GetGlobalLogger().WithError(err).Fatal("Signed URL resolution failed")
			}

			fmt.Println(signedURL)
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  "Print the configuration assembled from defaults, environment variables and flags, plus any validation issues",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := buildConfig()
			cfg.PrintConfig()

			issues := cfg.Validate()
			if len(issues) == 0 {
				fmt.Println("✓ Configuration is valid")
				return
			}

			fmt.Printf("\nFound %d configuration issue(s):\n", len(issues))
			for _, issue := range issues {
				fmt.Printf("  ✗ %s\n", issue)
			}
			os.Exit(1)
		},
	}
	return cmd
}

// loadOverrides reads a conversation initiation overrides file. The format
// is chosen by extension; unknown extensions are tried as YAML first, then
// JSON.
func loadOverrides(path string, data *voxa.ConversationInitiationClientData) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read overrides file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, data); err != nil {
			return fmt.Errorf("failed to parse JSON overrides: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, data); err != nil {
			return fmt.Errorf("failed to parse YAML overrides: %w", err)
		}
	default:
		if err := yaml.Unmarshal(raw, data); err != nil {
			if jsonErr := json.Unmarshal(raw, data); jsonErr != nil {
				return fmt.Errorf("failed to parse overrides as YAML or JSON: %w", err)
			}
		}
	}

	return nil
}
