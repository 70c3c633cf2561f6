package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"feedbackgen/internal/feedback"
	"feedbackgen/internal/llm"
	"feedbackgen/internal/logger"
	"feedbackgen/internal/notes"
	"feedbackgen/internal/profile"
	"feedbackgen/internal/render"
	"feedbackgen/internal/review"
	"feedbackgen/internal/secrets"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a structured feedback report from interview notes",
	Run: func(cmd *cobra.Command, _ []string) {
		generate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("input", "i", "", "a file with interview notes (txt, md, pdf or docx)")
	generateCmd.Flags().StringP("candidate", "c", "", "the candidate name")
	generateCmd.Flags().StringP("mode", "m", "local", "llm backend mode: local (Ollama) or remote (OpenAI-compatible API)")
	generateCmd.Flags().String("model", "", "model name (default depends on the mode)")
	generateCmd.Flags().String("base-url", "", "base URL of the llm server (remote API or Ollama)")
	generateCmd.Flags().String("api-key", "", "api key for the remote backend")
	generateCmd.Flags().String("api-key-file", "", "a file with the api key for the remote backend")
	generateCmd.Flags().StringP("output", "o", "", "write the report to this exact path")
	generateCmd.Flags().String("output-dir", "output", "directory for generated reports")
	generateCmd.Flags().StringP("format", "f", "markdown", "report format: markdown or json")
	generateCmd.Flags().BoolP("review", "r", false, "review and adjust the scores interactively before saving")
	generateCmd.Flags().Bool("ai-eval", false, "append an ai evaluation of the generated feedback")
	generateCmd.Flags().Bool("dry-run", false, "print the prompts and exit without calling the llm")

	generateCmd.MarkFlagRequired("input")
	generateCmd.MarkFlagRequired("candidate")

	viper.BindPFlag("mode", generateCmd.Flags().Lookup("mode"))
	viper.BindPFlag("model", generateCmd.Flags().Lookup("model"))
	viper.BindPFlag("base-url", generateCmd.Flags().Lookup("base-url"))
	viper.BindPFlag("api-key", generateCmd.Flags().Lookup("api-key"))
	viper.BindPFlag("api-key-file", generateCmd.Flags().Lookup("api-key-file"))
	viper.BindPFlag("output-dir", generateCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("format", generateCmd.Flags().Lookup("format"))
}

// generate is the main command for the cli.
func generate(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		config = &Config{}
	}

	logger = logger.With(zap.String("run_id", uuid.NewString()))

	logger.Info("starting the feedbackgen", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.redacted(), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	candidate := cmd.Flag("candidate").Value.String()
	input := cmd.Flag("input").Value.String()

	notesText, err := notes.Read(input)
	if err != nil {
		logger.Fatal("reading interview notes", zap.Error(err))
	}

	p, err := profile.Load(config.Profile)
	if err != nil {
		logger.Fatal("loading evaluation profile", zap.Error(err))
	}

	logger.Info("generating feedback",
		zap.String("candidate", candidate),
		zap.String("notes_file", input),
		zap.Int("technical_areas", len(p.Technical)),
		zap.Int("non_technical_areas", len(p.NonTechnical)),
		zap.Int("personal_areas", len(p.PersonalAssessment)),
	)

	if cmd.Flag("dry-run").Value.String() == "true" {
		fmt.Printf("=== System prompt ===\n\n%s\n\n=== User prompt ===\n\n%s\n",
			feedback.BuildSystemPrompt(p),
			feedback.BuildUserPrompt(p, candidate, notesText),
		)
		return
	}

	backend, err := newBackend(config, logger)
	if err != nil {
		logger.Fatal("configuring the llm backend",
			zap.Error(err),
			zap.String("hint", "use --mode local for Ollama or set OPENAI_API_KEY for the remote API"),
		)
	}

	generator := feedback.NewGenerator(backend, logger)

	report, err := generator.Generate(ctx, p, candidate, notesText)
	if err != nil {
		logger.Fatal("analyzing interview notes", zap.Error(err))
	}

	logger.Info("feedback generated", zap.String("overall_level", report.OverallLevel))

	if cmd.Flag("review").Value.String() == "true" {
		if err := review.New(os.Stdin, os.Stdout).Run(report, p); err != nil {
			logger.Fatal("interactive review", zap.Error(err))
		}
	}

	if cmd.Flag("ai-eval").Value.String() == "true" {
		evaluation, err := generator.EvaluateFeedback(ctx, report, notesText)
		if err != nil {
			logger.Warn("ai evaluation failed, continuing without it", zap.Error(err))
		} else {
			report.AIEvaluation = evaluation
		}
	}

	fmt.Print(render.Text(report))

	path, err := writeReport(report, candidate, cmd.Flag("output").Value.String(), config)
	if err != nil {
		logger.Fatal("writing the report", zap.Error(err))
	}

	fmt.Printf("Report saved to %s\n", path)
}

func newBackend(config *Config, log *zap.Logger) (llm.Backend, error) {
	mode, err := llm.ParseMode(config.Mode)
	if err != nil {
		return nil, err
	}

	cfg := llm.Config{
		Mode:    mode,
		BaseURL: config.BaseURL,
		Model:   strings.TrimSpace(config.Model),
		OnProgress: func(status string) {
			log.Info(status)
		},
	}

	if mode == llm.ModeRemote {
		apiKey, err := resolveAPIKey(config)
		if err != nil {
			return nil, err
		}
		cfg.APIKey = apiKey
	}

	backend, err := feedback.NewBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	if mode == llm.ModeRemote {
		log.Debug("remote backend configured", logger.StringFields(
			logger.StringField{Key: "api_key", Value: secrets.Masked(cfg.APIKey)},
			logger.StringField{Key: "base_url", Value: cfg.BaseURL},
		)...)
	}

	return backend, nil
}

func resolveAPIKey(config *Config) (string, error) {
	value := strings.TrimSpace(config.APIKey)
	if value == "" {
		value = strings.TrimSpace(viper.GetString("api-key"))
	}

	file := strings.TrimSpace(config.APIKeyFile)
	if file == "" {
		file = strings.TrimSpace(viper.GetString("api-key-file"))
	}

	// let the backend constructor report a missing key
	if value == "" && file == "" {
		return "", nil
	}

	return secrets.Load(secrets.Source{
		Name:  "openai api key",
		Value: value,
		File:  file,
	})
}

func writeReport(report *feedback.Report, candidate, output string, config *Config) (string, error) {
	format := strings.ToLower(strings.TrimSpace(config.Format))

	var data []byte
	var ext string

	switch format {
	case "", "markdown", "md":
		data = []byte(render.Markdown(report))
		ext = "md"
	case "json":
		encoded, err := render.JSON(report)
		if err != nil {
			return "", err
		}
		data = encoded
		ext = "json"
	default:
		return "", fmt.Errorf("unsupported format %q (expected markdown or json)", config.Format)
	}

	if output == "" {
		dir := config.OutputDir
		if dir == "" {
			dir = "output"
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}

		name := fmt.Sprintf("feedback-%s-%s.%s",
			strings.ReplaceAll(candidate, " ", "-"),
			time.Now().Format("20060102-1504"),
			ext,
		)
		output = filepath.Join(dir, name)
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report file: %w", err)
	}

	return output, nil
}
