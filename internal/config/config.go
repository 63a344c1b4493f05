// =============================================================================
// navaudit - Configuration Management
// =============================================================================
//
// This module loads and validates the YAML configuration.
//
// CONFIGURATION FILE (config.yaml):
//
//	nav:
//	  file: amfi.txt
//	  delimiter: ";"
//	  group_markers: ["Mutual Fund"]
//	  header_sentinel: Scheme Code
//	  min_fields: 6
//	  date_layout: 02-Jan-2006
//	  placeholders: ["N.A."]
//	  with_previous_day: false
//	transactions:
//	  file: transactions.csv
//	  delimiter: ","
//	  header_sentinel: clientId
//	  year_prefixes: ["2023-", "2024-", "2025-"]
//	  duplicate_key: [clientId, type, amount, transactionDate, schemeCode]
//	  schema_xlsx: ""
//	output:
//	  format: text
//	  dir: ./reports
//	  file_name_format: "{kind}_{timestamp}_{uuid}"
//	  issue_log: false
//	logging:
//	  file: ""
//	  level: info
//	metrics:
//	  enabled: false
//	  textfile: ./navaudit.prom
//	  namespace: navaudit
//	batch:
//	  workers: 4
//	  nav_patterns: ["**/*amfi*.txt", "**/*nav*.txt"]
//	  transaction_patterns: ["**/*.csv"]
//
// A missing configuration file is not an error: the built-in defaults are
// used instead. Defaults are applied before validation, so a partial file
// only needs the settings it changes.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name looked up when none is given.
const DefaultConfigFile = "config.yaml"

// =============================================================================
// CONFIGURATION STRUCTURES
// =============================================================================

// Config is the top-level configuration.
type Config struct {
	NAV          NAVConfig          `yaml:"nav"`
	Transactions TransactionsConfig `yaml:"transactions"`
	Output       OutputConfig       `yaml:"output"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Batch        BatchConfig        `yaml:"batch"`
}

// NAVConfig controls the AMFI NAV file audit.
type NAVConfig struct {
	// File is the default NAV file path.
	// Relative paths are resolved next to the executable.
	File string `yaml:"file" validate:"required"`

	// Delimiter separates the fields of a NAV line.
	// Default: ";"
	Delimiter string `yaml:"delimiter" validate:"required"`

	// GroupMarkers identify AMC label lines.
	// Default: ["Mutual Fund"]
	GroupMarkers []string `yaml:"group_markers" validate:"required,min=1,dive,required"`

	// HeaderSentinel is the first field of the header line.
	// Default: "Scheme Code"
	HeaderSentinel string `yaml:"header_sentinel" validate:"required"`

	// MinFields is the minimum number of fields on a NAV line.
	// Default: 6
	MinFields int `yaml:"min_fields" validate:"gte=6"`

	// DateLayout is the Go time layout of the NAV date.
	// Default: "02-Jan-2006"
	DateLayout string `yaml:"date_layout" validate:"required"`

	// Placeholders are accepted in place of a NAV value.
	// Default: ["N.A."]
	Placeholders []string `yaml:"placeholders"`

	// WithPreviousDay also audits the day before the target date.
	WithPreviousDay bool `yaml:"with_previous_day"`
}

// TransactionsConfig controls the transaction export audit.
type TransactionsConfig struct {
	// File is the default transaction export path.
	File string `yaml:"file" validate:"required"`

	// Delimiter separates the fields of a transaction line.
	// Default: ","
	Delimiter string `yaml:"delimiter" validate:"required"`

	// HeaderSentinel is the first field of a header line.
	// Default: "clientId"
	HeaderSentinel string `yaml:"header_sentinel" validate:"required"`

	// YearPrefixes are the accepted date prefixes.
	// Default: ["2023-", "2024-", "2025-"]
	YearPrefixes []string `yaml:"year_prefixes" validate:"required,min=1,dive,required"`

	// DuplicateKey names the columns that identify a duplicate transaction.
	// Default: [clientId, type, amount, transactionDate, schemeCode]
	DuplicateKey []string `yaml:"duplicate_key" validate:"dive,required"`

	// SchemaXLSX is an optional XLSX template describing the columns.
	SchemaXLSX string `yaml:"schema_xlsx" validate:"omitempty,endswith=.xlsx"`

	// SchemaSheet picks one sheet of a multi-sheet SchemaXLSX.
	// Default: "" (the first sheet)
	SchemaSheet string `yaml:"schema_sheet" validate:"omitempty,excluded_without=SchemaXLSX"`
}

// OutputConfig controls report output.
type OutputConfig struct {
	// Format is the report format.
	// Default: "text"
	Format string `yaml:"format" validate:"oneof=text json xml xlsx"`

	// Dir is where report files are written when no explicit path is given.
	// Default: "./reports"
	Dir string `yaml:"dir" validate:"required"`

	// FileNameFormat is the pattern for generated report file names.
	// Placeholders: {kind}, {timestamp}, {uuid}
	// Default: "{kind}_{timestamp}_{uuid}"
	FileNameFormat string `yaml:"file_name_format" validate:"required"`

	// IssueLog also writes the issues as a plain text log next to the report.
	IssueLog bool `yaml:"issue_log"`
}

// LoggingConfig controls the run log.
type LoggingConfig struct {
	// File is the log destination. Empty logs to stderr.
	File string `yaml:"file"`

	// Level is the minimum log level.
	// Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Textfile is the node-exporter textfile collector path.
	Textfile string `yaml:"textfile" validate:"required_if=Enabled true"`

	// Namespace prefixes every metric name.
	// Default: "navaudit"
	Namespace string `yaml:"namespace" validate:"required"`
}

// BatchConfig controls the batch command.
type BatchConfig struct {
	// Workers is the number of files audited concurrently.
	// Default: 4
	Workers int `yaml:"workers" validate:"gte=1,lte=64"`

	// NAVPatterns select NAV files during discovery (doublestar syntax).
	NAVPatterns []string `yaml:"nav_patterns" validate:"dive,required"`

	// TransactionPatterns select transaction exports during discovery.
	TransactionPatterns []string `yaml:"transaction_patterns" validate:"dive,required"`
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// Load reads the configuration file at configPath.
// A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates configuration data.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration against its struct rules.
// Every failing field is listed in the returned error.
func Validate(config *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(config)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msg := fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		messages = append(messages, msg)
	}
	return errors.New(strings.Join(messages, "; "))
}

// applyDefaults fills in unset values.
func applyDefaults(config *Config) {
	nav := &config.NAV
	if nav.File == "" {
		nav.File = "amfi.txt"
	}
	if nav.Delimiter == "" {
		nav.Delimiter = ";"
	}
	if len(nav.GroupMarkers) == 0 {
		nav.GroupMarkers = []string{"Mutual Fund"}
	}
	if nav.HeaderSentinel == "" {
		nav.HeaderSentinel = "Scheme Code"
	}
	if nav.MinFields == 0 {
		nav.MinFields = 6
	}
	if nav.DateLayout == "" {
		nav.DateLayout = "02-Jan-2006"
	}
	if nav.Placeholders == nil {
		nav.Placeholders = []string{"N.A."}
	}

	txn := &config.Transactions
	if txn.File == "" {
		txn.File = "transactions.csv"
	}
	if txn.Delimiter == "" {
		txn.Delimiter = ","
	}
	if txn.HeaderSentinel == "" {
		txn.HeaderSentinel = "clientId"
	}
	if len(txn.YearPrefixes) == 0 {
		txn.YearPrefixes = []string{"2023-", "2024-", "2025-"}
	}
	if len(txn.DuplicateKey) == 0 {
		txn.DuplicateKey = []string{"clientId", "type", "amount", "transactionDate", "schemeCode"}
	}

	out := &config.Output
	if out.Format == "" {
		out.Format = "text"
	}
	if out.Dir == "" {
		out.Dir = "./reports"
	}
	if out.FileNameFormat == "" {
		out.FileNameFormat = "{kind}_{timestamp}_{uuid}"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = "navaudit"
	}

	batch := &config.Batch
	if batch.Workers == 0 {
		batch.Workers = 4
	}
	if len(batch.NAVPatterns) == 0 {
		batch.NAVPatterns = []string{"**/*amfi*.txt", "**/*nav*.txt"}
	}
	if len(batch.TransactionPatterns) == 0 {
		batch.TransactionPatterns = []string{"**/*.csv"}
	}
}
