package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed config.schema.json
var configSchemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader(configSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load config schema: %w", err)
	}
	return compiler.Compile("config.schema.json")
})

// Validate checks the config against the embedded JSON schema and the
// cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var problems []error
	if _, ok := c.LLMProviders[c.Defaults.LLMProvider]; !ok {
		problems = append(problems, fmt.Errorf("defaults.llm_provider %q is not a configured provider", c.Defaults.LLMProvider))
	}

	names := make([]string, 0, len(c.Pipeline.Windows))
	for name := range c.Pipeline.Windows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w := c.Pipeline.Windows[name]
		if w.MinWords > 0 && w.MaxWords > 0 && w.MinWords > w.MaxWords {
			problems = append(problems, fmt.Errorf("pipeline.windows.%s: min_words %d exceeds max_words %d", name, w.MinWords, w.MaxWords))
		}
	}

	if c.Pipeline.BackoffCap > 0 && c.Pipeline.BackoffCap < c.Pipeline.BackoffBase {
		problems = append(problems, fmt.Errorf("pipeline.backoff_cap %s is below backoff_base %s", c.Pipeline.BackoffCap, c.Pipeline.BackoffBase))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
	}
	return nil
}
