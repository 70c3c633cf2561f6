package cmd

import (
	"log"

	"feedbackgen/internal/secrets"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "feedbackgen"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Profile    string `mapstructure:"profile"`
	OutputDir  string `mapstructure:"output-dir"`
	Format     string `mapstructure:"format"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "feedbackgen is a cli for turning interview notes into structured feedback reports with an LLM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("api-key", "OPENAI_API_KEY"); err != nil {
		log.Fatalf("binding OPENAI_API_KEY environment variable: %v", err)
	}

	if err := viper.BindEnv("api-key-file", "OPENAI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding OPENAI_API_KEY_FILE environment variable: %v", err)
	}

	if err := viper.BindEnv("base-url", "LLM_BASE_URL"); err != nil {
		log.Fatalf("binding LLM_BASE_URL environment variable: %v", err)
	}

	if err := viper.BindEnv("model", "LLM_MODEL", "OPENAI_MODEL"); err != nil {
		log.Fatalf("binding LLM_MODEL environment variable: %v", err)
	}

	if err := viper.BindEnv("mode", "FEEDBACK_MODE"); err != nil {
		log.Fatalf("binding FEEDBACK_MODE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is feedbackgen.yaml in current directory)")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "a profile file with assessment areas and levels (default is feedback-config.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for generate and template commands. If there is no
	// config, we can skip initialization
	if generateCmd.CalledAs() == "" && templateCmd.CalledAs() == "" {
		return
	}

	// Credentials may live in a .env file in the working directory.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		// An explicitly requested config file must parse.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}

		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	// The tool runs fine without a config file: flags and environment
	// variables cover every setting.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// redacted returns a copy of the config that is safe to log.
func (c *Config) redacted() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	if clone.APIKey != "" {
		clone.APIKey = secrets.Masked(clone.APIKey)
	}

	return &clone
}
