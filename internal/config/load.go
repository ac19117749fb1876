package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	gferrors "github.com/vnykmshr/taskrun/pkg/common/errors"
	"github.com/vnykmshr/taskrun/pkg/retry"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "TASKRUN"

var defaults = map[string]any{
	"retry.tries":           retry.DefaultTries,
	"retry.pause":           retry.DefaultPause,
	"pool.workers":          10,
	"pool.queue_size":       100,
	"pool.task_timeout":     0,
	"pool.shutdown_timeout": "30s",
	"log.level":             "info",
	"log.format":            "json",
	"metrics.enabled":       false,
	"metrics.addr":          ":9090",
}

// Load reads configuration from defaults, the YAML file at path (skipped when
// path is empty) and TASKRUN_ environment variables, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags. The first failing field is
// reported as a *errors.ValidationError.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating config: %w", err)
	}

	fe := fieldErrs[0]
	reason := fe.Tag()
	if fe.Param() != "" {
		reason += "=" + fe.Param()
	}
	return gferrors.NewValidationError("config", fieldPath(fe.Namespace()), fe.Value(), "failed "+reason)
}

// fieldPath turns "Config.Pool.QueueSize" into "Pool.QueueSize".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
