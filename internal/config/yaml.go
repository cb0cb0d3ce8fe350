package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlOverlay mirrors the subset of AppConfig fields a --config <path>.yaml
// file may override. Only fields present in the document are applied; a
// zero value in a field that wasn't in the YAML (e.g. an absent "port") is
// indistinguishable from an explicit zero, so integer fields use pointers.
type yamlOverlay struct {
	Host                   *string `yaml:"host"`
	Port                   *int    `yaml:"port"`
	DataDir                *string `yaml:"data_dir"`
	DBURL                  *string `yaml:"db_url"`
	LogLevel               *string `yaml:"log_level"`
	LogFormat              *string `yaml:"log_format"`
	DisableTelemetry       *bool   `yaml:"disable_telemetry"`
	SkipProviderValidation *bool   `yaml:"skip_provider_validation"`
	APIKeys                []string `yaml:"api_keys"`
	WorkerCount            *int    `yaml:"worker_count"`
	SearchLimit            *int    `yaml:"search_limit"`
	RetrievalBudget        *int    `yaml:"retrieval_budget"`
	PipelineCooldownSeconds *float64 `yaml:"pipeline_cooldown_seconds"`
	LiveDataConfirmMode    *string `yaml:"live_data_confirm_mode"`

	EmbeddingEndpoint *yamlEndpoint `yaml:"embedding_endpoint"`
}

type yamlEndpoint struct {
	BaseURL          string  `yaml:"base_url"`
	Model            string  `yaml:"model"`
	APIKey           string  `yaml:"api_key"`
	NumParallelTasks int     `yaml:"num_parallel_tasks"`
	MaxRetries       int     `yaml:"max_retries"`
	InitialDelay     float64 `yaml:"initial_delay"`
	BackoffFactor    float64 `yaml:"backoff_factor"`
	MaxBatchSize     int     `yaml:"max_batch_size"`
}

// LoadYAMLOverlay reads a YAML file at path and applies its fields on top
// of base, returning the merged AppConfig. It is used when --config points
// at a .yaml/.yml file rather than a .env file, for deployments that prefer
// a structured config document over environment variables.
func LoadYAMLOverlay(path string, base AppConfig) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read yaml config: %w", err)
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return AppConfig{}, fmt.Errorf("parse yaml config: %w", err)
	}

	var opts []AppConfigOption
	if overlay.Host != nil {
		opts = append(opts, WithHost(*overlay.Host))
	}
	if overlay.Port != nil {
		opts = append(opts, WithPort(*overlay.Port))
	}
	if overlay.DataDir != nil {
		opts = append(opts, WithDataDir(*overlay.DataDir))
	}
	if overlay.DBURL != nil {
		opts = append(opts, WithDBURL(*overlay.DBURL))
	}
	if overlay.LogLevel != nil {
		opts = append(opts, WithLogLevel(*overlay.LogLevel))
	}
	if overlay.LogFormat != nil {
		opts = append(opts, WithLogFormat(parseLogFormat(*overlay.LogFormat)))
	}
	if overlay.DisableTelemetry != nil {
		opts = append(opts, WithDisableTelemetry(*overlay.DisableTelemetry))
	}
	if overlay.SkipProviderValidation != nil {
		opts = append(opts, WithSkipProviderValidation(*overlay.SkipProviderValidation))
	}
	if overlay.APIKeys != nil {
		opts = append(opts, WithAPIKeys(overlay.APIKeys))
	}
	if overlay.WorkerCount != nil {
		opts = append(opts, WithWorkerCount(*overlay.WorkerCount))
	}
	if overlay.SearchLimit != nil {
		opts = append(opts, WithSearchLimit(*overlay.SearchLimit))
	}
	if overlay.RetrievalBudget != nil {
		opts = append(opts, WithRetrievalBudget(*overlay.RetrievalBudget))
	}
	if overlay.PipelineCooldownSeconds != nil {
		opts = append(opts, WithPipelineCooldown(time.Duration(*overlay.PipelineCooldownSeconds*float64(time.Second))))
	}
	if overlay.LiveDataConfirmMode != nil {
		opts = append(opts, WithLiveDataConfirmMode(*overlay.LiveDataConfirmMode))
	}
	if overlay.EmbeddingEndpoint != nil {
		opts = append(opts, WithEmbeddingEndpoint(overlay.EmbeddingEndpoint.toEndpoint()))
	}

	return base.Apply(opts...), nil
}

func (e *yamlEndpoint) toEndpoint() Endpoint {
	endpointOpts := []EndpointOption{
		WithModel(e.Model),
	}
	if e.BaseURL != "" {
		endpointOpts = append(endpointOpts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		endpointOpts = append(endpointOpts, WithAPIKey(e.APIKey))
	}
	if e.NumParallelTasks > 0 {
		endpointOpts = append(endpointOpts, WithNumParallelTasks(e.NumParallelTasks))
	}
	if e.MaxRetries > 0 {
		endpointOpts = append(endpointOpts, WithMaxRetries(e.MaxRetries))
	}
	if e.InitialDelay > 0 {
		endpointOpts = append(endpointOpts, WithInitialDelay(time.Duration(e.InitialDelay*float64(time.Second))))
	}
	if e.BackoffFactor > 0 {
		endpointOpts = append(endpointOpts, WithBackoffFactor(e.BackoffFactor))
	}
	if e.MaxBatchSize > 0 {
		endpointOpts = append(endpointOpts, WithMaxBatchSize(e.MaxBatchSize))
	}
	return NewEndpointWithOptions(endpointOpts...)
}
