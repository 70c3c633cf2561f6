// Package profile defines the evaluation profile: the assessment areas a
// candidate is scored on and the allowed overall levels.
package profile

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// DefaultConfigFile is looked up in the working directory when no explicit
// profile path is given.
const DefaultConfigFile = "feedback-config.yaml"

// Profile describes the report schema: ordered area names per category and
// the allowed overall levels, ordered from most junior to most senior.
type Profile struct {
	Technical          []string `mapstructure:"technical" json:"technical"`
	NonTechnical       []string `mapstructure:"non_technical" json:"non_technical"`
	PersonalAssessment []string `mapstructure:"personal_assessment" json:"personal_assessment,omitempty"`
	OverallLevels      []string `mapstructure:"overall_levels" json:"overall_levels"`
}

// Default returns the built-in profile used when no configuration file exists.
func Default() *Profile {
	return &Profile{
		Technical: []string{
			"C# Basic",
			"C# Intermediate",
			"C# Advanced",
			"DBs relational",
			"DBs no sql",
			"Security",
			"Cloud",
			"Personal projects",
			"Last work project",
			"DevOps",
			"Web development",
			"Web SPA - Angular",
		},
		NonTechnical: []string{
			"Potential & Motivation a.k.a Drive",
			"Communication",
			"Self impression",
		},
		PersonalAssessment: []string{},
		OverallLevels:      []string{"Junior", "Medior", "Senior", "Lead"},
	}
}

// Load reads a profile from a YAML file. An empty path looks for
// DefaultConfigFile in the working directory and falls back to the built-in
// defaults when it does not exist; an explicit path must exist. Keys missing
// from the file keep their default values.
func Load(path string) (*Profile, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, fmt.Errorf("profile file %q: %w", path, err)
		}
		return Default(), nil
	}

	defaults := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("technical", defaults.Technical)
	v.SetDefault("non_technical", defaults.NonTechnical)
	v.SetDefault("personal_assessment", defaults.PersonalAssessment)
	v.SetDefault("overall_levels", defaults.OverallLevels)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading profile %q: %w", path, err)
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("parsing profile %q: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", path, err)
	}

	return &p, nil
}
