// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pdb-tracker/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent" validate:"required"`

	// MaxRetries bounds retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
}

// DiscoveryConfig holds settings for the discovery stage.
type DiscoveryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// SearchURL overrides the search service endpoint.
	SearchURL string `json:"search_url,omitempty" yaml:"search_url,omitempty" mapstructure:"search_url" validate:"omitempty,url"`

	// PageSize is the number of rows requested per page. Zero asks the
	// service for all hits in one response and pages only if it truncates.
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size" validate:"gte=0,lte=10000"`
}

// EnrichmentConfig holds settings for the enrichment stage.
type EnrichmentConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// EntryURL overrides the entry-detail service base URL.
	EntryURL string `json:"entry_url,omitempty" yaml:"entry_url,omitempty" mapstructure:"entry_url" validate:"omitempty,url"`

	// MappingURL overrides the cross-reference service base URL.
	MappingURL string `json:"mapping_url,omitempty" yaml:"mapping_url,omitempty" mapstructure:"mapping_url" validate:"omitempty,url"`

	// RequestInterval is the minimum delay between two requests to the same
	// upstream service (default 100ms). Zero disables throttling.
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval" mapstructure:"request_interval" validate:"gte=0"`

	// Workers bounds concurrent per-identifier enrichment (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=64"`
}

// OutputFormat selects the artifact encoding.
type OutputFormat string

const (
	FormatCSV     OutputFormat = "csv"
	FormatParquet OutputFormat = "parquet"
)

// Ext returns the file extension for the format, without the dot.
func (f OutputFormat) Ext() string {
	if f == "" {
		return string(FormatCSV)
	}
	return string(f)
}

// OutputConfig holds settings for the tabular sink.
type OutputConfig struct {
	// Dir is the directory artifacts are written to.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir" validate:"required"`

	// Format selects csv or parquet.
	Format OutputFormat `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=csv parquet"`
}

// PublishConfig holds settings for uploading the finished artifact to an
// S3-compatible bucket.
type PublishConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint" validate:"required_if=Enabled true,omitempty,hostname|hostname_port"`
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty" mapstructure:"bucket" validate:"required_if=Enabled true"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty" mapstructure:"prefix"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl" mapstructure:"use_ssl"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty" mapstructure:"access_key"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" mapstructure:"secret_key"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Env selects the encoder: prod (JSON) or dev/local (console).
	Env string `json:"env" yaml:"env" mapstructure:"env" validate:"oneof=prod dev local"`

	// Level overrides the environment's default level.
	Level string `json:"level,omitempty" yaml:"level,omitempty" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig holds settings for the optional metrics endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" mapstructure:"addr" validate:"omitempty,hostname_port"`

	// Linger keeps the endpoint up after the run finishes so the final
	// values can be scraped. Zero stops it immediately.
	Linger time.Duration `json:"linger,omitempty" yaml:"linger,omitempty" mapstructure:"linger" validate:"gte=0"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Discovery  DiscoveryConfig  `json:"discovery" yaml:"discovery" mapstructure:"discovery"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment" mapstructure:"enrichment"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Publish    PublishConfig    `json:"publish" yaml:"publish" mapstructure:"publish"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and reports the first batch of
// violations as a single InvalidInputError.
func (c PipelineConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InvalidInputError{Input: "configuration", Reason: "validation failed", Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return &InvalidInputError{Input: "configuration", Reason: strings.Join(msgs, "; ")}
}

// Redacted returns a copy with credentials masked, for display.
func (c PipelineConfig) Redacted() PipelineConfig {
	if c.Publish.AccessKey != "" {
		c.Publish.AccessKey = "********"
	}
	if c.Publish.SecretKey != "" {
		c.Publish.SecretKey = "********"
	}
	return c
}
