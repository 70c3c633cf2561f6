package cmd

import (
	"fmt"
	"log"

	"feedbackgen/internal/logger"
	"feedbackgen/internal/profile"
	"feedbackgen/internal/render"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print a note-taking template with the evaluation areas of the active profile",
	Run: func(_ *cobra.Command, _ []string) {
		logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}

		p, err := profile.Load(viper.GetString("profile"))
		if err != nil {
			logger.Fatal("loading evaluation profile", zap.Error(err))
		}

		fmt.Print(render.TemplateText(p))
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
}
