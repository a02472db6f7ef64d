package model

// Config is the full honorscan configuration. It is populated from defaults,
// the YAML config file, HONORSCAN_* environment variables and CLI flags.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Authority AuthorityConfig `yaml:"authority" mapstructure:"authority"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
}

// PathsConfig locates the honoree table and the progress documents
type PathsConfig struct {
	Table        string `yaml:"table" mapstructure:"table"`
	ProgressFile string `yaml:"progress_file" mapstructure:"progress_file"`
	ResultsFile  string `yaml:"results_file" mapstructure:"results_file"`
}

// LLMConfig selects the text-generation provider and models
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama
	PrimaryModel      string  `yaml:"primary_model" mapstructure:"primary_model"`
	FallbackModel     string  `yaml:"fallback_model" mapstructure:"fallback_model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	Grounding         bool    `yaml:"grounding" mapstructure:"grounding"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`                   // 0 uses the provider default
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"` // 0 disables pacing
}

// PipelineConfig tunes the enrichment pass
type PipelineConfig struct {
	EnableConfirmation bool `yaml:"enable_confirmation" mapstructure:"enable_confirmation"`
	CheckpointEvery    int  `yaml:"checkpoint_every" mapstructure:"checkpoint_every"` // 0 flushes only at end of pass
	ProgressEvery      int  `yaml:"progress_every" mapstructure:"progress_every"`
	StartFrom          int  `yaml:"start_from" mapstructure:"start_from"`
	Limit              int  `yaml:"limit" mapstructure:"limit"` // 0 means no limit
	DryRun             bool `yaml:"dry_run" mapstructure:"dry_run"`
}

// HTTPConfig is used when importing honoree pages over HTTP
type HTTPConfig struct {
	Timeout           int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots     bool    `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// IngestConfig tunes the merge step
type IngestConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// AuthorityConfig ranks the web pages cited by grounded answers
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"` // host -> tier, checked first
}

// PathPattern assigns a tier to URLs whose path matches a regular expression
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// MetricsConfig controls the Prometheus textfile output
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty" mapstructure:"textfile_path"`
}

// OutputConfig controls console verbosity
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // json or console
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Table:        "30u30_all_years.csv",
			ProgressFile: "progress/progress.json",
			ResultsFile:  "progress/results.json",
		},
		LLM: LLMConfig{
			Provider:      "gemini",
			PrimaryModel:  "gemini-3-flash-preview",
			FallbackModel: "gemini-2.5-flash",
			Timeout:       60,
			Grounding:     true,
		},
		Pipeline: PipelineConfig{
			EnableConfirmation: true,
			CheckpointEvery:    10,
			ProgressEvery:      10,
		},
		HTTP: HTTPConfig{
			Timeout:           30,
			UserAgent:         "honorscan/0.1 (+https://github.com/ppiankov/honorscan)",
			MaxBodyBytes:      5_000_000,
			RespectRobots:     true,
			RequestsPerSecond: 1,
		},
		Ingest: IngestConfig{
			Workers: 4,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"justice.gov", "sec.gov", "ftc.gov", "cftc.gov", "uscourts.gov",
				"courtlistener.com", "supremecourt.gov",
			},
			SecondaryDomains: []string{
				"reuters.com", "apnews.com", "bloomberg.com", "wsj.com", "nytimes.com",
				"ft.com", "washingtonpost.com", "bbc.co.uk", "bbc.com", "cnbc.com",
				"forbes.com", "theverge.com", "techcrunch.com",
			},
			PathPatterns: []PathPattern{
				{Pattern: `^/(usao|opa)/pr/`, Tier: "primary"},
				{Pattern: `/litigation/(complaints|litreleases)/`, Tier: "primary"},
			},
		},
		Output: OutputConfig{
			LogFormat: "console",
		},
	}
}
