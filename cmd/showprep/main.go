package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kxlu/showprep/internal/config"
	"github.com/kxlu/showprep/internal/enrich"
	"github.com/kxlu/showprep/internal/export"
	"github.com/kxlu/showprep/internal/fetch"
	"github.com/kxlu/showprep/internal/llm"
	"github.com/kxlu/showprep/internal/parser"
	"github.com/kxlu/showprep/internal/research"
	"github.com/kxlu/showprep/internal/server"
	"github.com/kxlu/showprep/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "showprep",
	Short:   "AI research for radio playlists",
	Long:    "showprep ingests a CSV playlist, researches each track with an LLM, and serves a local dashboard and show-prep view.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Provider keys can live in a local .env next to the playlist files.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("showprep", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/showprep/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the research provider and API key.")
		return nil
	},
}

// --- research command ---

var outputPath string

var researchCmd = &cobra.Command{
	Use:   "research [file.csv]",
	Short: "Research a CSV playlist from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening playlist: %w", err)
		}
		defer file.Close()

		records, err := parser.Parse(file)
		if err != nil {
			return err
		}
		resolvable := parser.ResolvableCount(records)
		if resolvable == 0 {
			return fmt.Errorf("no rows with a resolvable artist and title")
		}
		fmt.Printf("Researching %d tracks from %s...\n", resolvable, args[0])

		pipe := newPipeline()
		tracks, failures := pipe.Run(context.Background(), records, func(percent float64, label string) {
			log.Printf("[%3.0f%%] %s", percent, label)
		})

		st := store.New()
		fileName := filepath.Base(args[0])
		show := st.CreateShow(store.ShowName(time.Now(), fileName), fileName, tracks)

		printTracks(show.Tracks)
		if len(failures) > 0 {
			fmt.Printf("\n%d of %d tracks failed research:\n", len(failures), len(show.Tracks))
			for _, label := range failures {
				fmt.Printf("  %s\n", label)
			}
		}

		if outputPath != "" {
			out, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer out.Close()

			shows, played := st.Snapshot()
			if err := export.Build(shows, played, time.Now()).Write(out); err != nil {
				return err
			}
			fmt.Printf("\nWrote %s\n", outputPath)
		}
		return nil
	},
}

func init() {
	researchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the export JSON to this file")
}

func printTracks(tracks []store.Track) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Artist", "Title", "Year", "Genre", "Region"})
	for _, t := range tracks {
		tw.AppendRow(table.Row{t.Artist, t.Title, t.ReleaseYear, t.Genre, t.Region})
	}
	tw.Render()
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local show prep server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(store.New(), newPipeline(), fetch.NewPreviewer(0), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

func newPipeline() *enrich.Pipeline {
	res := cfg.Research
	provider := llm.CreateProvider(res.Provider, res.Model, res.OllamaURL, res.OpenAIModel, res.APIKeyEnv)
	client := research.NewClient(provider, res.MaxTokens)
	return enrich.New(client, cfg.TrackDelay())
}
