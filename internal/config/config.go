// Package config loads the study configuration: project identity, the
// ordered task list, and sink settings.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/brandtiboy/prototype-test/internal/models"
)

// Defaults for optional settings.
const (
	DefaultListen       = "127.0.0.1:7473"
	DefaultPrimaryColor = "#6366f1"
	DefaultResultsDir   = "results"
)

// Database configures the REST-style database sink.
type Database struct {
	URL     string `yaml:"url"`
	AnonKey string `yaml:"anon_key"`
}

// Config is the full study configuration.
type Config struct {
	Project      string `yaml:"project"`
	PrototypeDir string `yaml:"prototype_dir"`
	Listen       string `yaml:"listen"`
	PrimaryColor string `yaml:"primary_color"`

	// Tri-state flags: nil means "use the default".
	CollectTesterInfo *bool `yaml:"collect_tester_info"`
	AllowSkip         *bool `yaml:"allow_skip"`
	DownloadResults   *bool `yaml:"download_results"`

	ResultsDir string   `yaml:"results_dir"`
	ResultsDB  string   `yaml:"results_db"`
	WebhookURL string   `yaml:"webhook_url"`
	Database   Database `yaml:"database"`

	Tasks []models.TaskDefinition `yaml:"tasks"`
}

// Load reads and validates a study configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.PrototypeDir == "" {
		c.PrototypeDir = "."
	}
	if c.PrimaryColor == "" {
		c.PrimaryColor = DefaultPrimaryColor
	}
	if c.ResultsDir == "" {
		c.ResultsDir = DefaultResultsDir
	}
	if c.ResultsDB == "" {
		homeDir, _ := os.UserHomeDir()
		c.ResultsDB = filepath.Join(homeDir, ".prototest", "results.db")
	}
	for i := range c.Tasks {
		if c.Tasks[i].Kind == "" {
			c.Tasks[i].Kind = models.TaskKindStandard
		}
	}
}

func (c *Config) validate() error {
	if c.Project == "" {
		return fmt.Errorf("config: project is required")
	}
	if len(c.Tasks) == 0 {
		return fmt.Errorf("config: at least one task is required")
	}
	for i, t := range c.Tasks {
		switch t.Kind {
		case models.TaskKindStandard, models.TaskKindRecall:
		default:
			return fmt.Errorf("config: task %d has unknown kind %q", i+1, t.Kind)
		}
		// Missing recall fields are a data-quality problem, not a fatal one:
		// the session still runs, so warn instead of refusing to start.
		if t.Kind == models.TaskKindRecall && t.Question == "" {
			log.Printf("warning: recall task %d (%s) has no question", i+1, t.Title)
		}
	}
	return nil
}

// CollectInfo reports whether the welcome screen asks for tester identity.
// Defaults to true.
func (c *Config) CollectInfo() bool {
	if c.CollectTesterInfo != nil {
		return *c.CollectTesterInfo
	}
	return true
}

// SkipAllowed reports whether tasks can be skipped. Defaults to true.
func (c *Config) SkipAllowed() bool {
	if c.AllowSkip != nil {
		return *c.AllowSkip
	}
	return true
}

// DatabaseConfigured reports whether the database sink is usable.
func (c *Config) DatabaseConfigured() bool {
	return c.Database.URL != "" && c.Database.AnonKey != ""
}

// DownloadEnabled reports whether the local artifact sink runs. Defaults to
// true, but flips to false once a database endpoint is configured unless the
// flag was set explicitly.
func (c *Config) DownloadEnabled() bool {
	if c.DownloadResults != nil {
		return *c.DownloadResults
	}
	return !c.DatabaseConfigured()
}
