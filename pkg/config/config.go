// Package config resolves quest-dashboard settings from defaults, config
// files, a .env file, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KjellKod/quest/pkg/store"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// QUEST_DASHBOARD_FORMAT=json.
	EnvPrefix = "QUEST_DASHBOARD"

	// GlobalFile is the config file name inside DefaultConfigDir.
	GlobalFile = "config.yaml"

	// ProjectFile is the per-repository config file, relative to the repo root.
	ProjectFile = ".quest/dashboard.yaml"
)

// Config is the resolved settings for one run.
type Config struct {
	RepoRoot     string `mapstructure:"repo_root" yaml:"repo_root,omitempty" validate:"required"`
	Output       string `mapstructure:"output" yaml:"output,omitempty"`
	Format       string `mapstructure:"format" yaml:"format" validate:"oneof=html json yaml yml"`
	Granularity  string `mapstructure:"granularity" yaml:"granularity" validate:"oneof=month week"`
	GitHubURL    string `mapstructure:"github_url" yaml:"github_url,omitempty"`
	JournalDir   string `mapstructure:"journal_dir" yaml:"journal_dir" validate:"required"`
	QuestDir     string `mapstructure:"quest_dir" yaml:"quest_dir" validate:"required"`
	ChartLibrary string `mapstructure:"chart_library" yaml:"chart_library,omitempty"`
	Now          string `mapstructure:"now" yaml:"now,omitempty"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		RepoRoot:    ".",
		Format:      "html",
		Granularity: "month",
		JournalDir:  store.DefaultJournalDir,
		QuestDir:    store.DefaultQuestDir,
		LogLevel:    "warn",
	}
}

// flagKeys maps config keys to the command-line flags that override them.
var flagKeys = map[string]string{
	"repo_root":     "repo-root",
	"output":        "output",
	"format":        "format",
	"granularity":   "granularity",
	"github_url":    "github-url",
	"journal_dir":   "journal-dir",
	"quest_dir":     "quest-dir",
	"chart_library": "chart-library",
	"now":           "now",
	"log_level":     "log-level",
}

// Options says where Load looks for each layer.
type Options struct {
	// ConfigFile replaces the global config file. It must exist.
	ConfigFile string
	// GlobalDir overrides DefaultConfigDir.
	GlobalDir string
	// EnvFile is the dotenv file to read; ".env" when empty.
	EnvFile string
	// Flags are bound by name; only flags set on the command line win.
	Flags *pflag.FlagSet

	Fs afero.Fs
}

// Load resolves the configuration. Precedence, lowest first: defaults,
// the global file, the project file under the resolved repo root, the
// dotenv file, QUEST_DASHBOARD_* variables and changed flags.
func Load(opts Options) (*Config, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.GlobalDir == "" {
		opts.GlobalDir = DefaultConfigDir()
	}
	if opts.EnvFile == "" {
		opts.EnvFile = ".env"
	}

	v := viper.New()
	v.SetFs(opts.Fs)
	v.SetConfigType("yaml")

	defaults := Defaults()
	for key, value := range settings(defaults) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	global := opts.ConfigFile
	required := global != ""
	if !required {
		global = filepath.Join(opts.GlobalDir, GlobalFile)
	}
	if err := mergeFile(v, opts.Fs, global, required); err != nil {
		return nil, err
	}

	dotenv, err := readDotenv(opts.Fs, opts.EnvFile)
	if err != nil {
		return nil, err
	}

	// The project file lives under the repo root, which may itself come
	// from any layer but the project file.
	root := v.GetString("repo_root")
	if r, ok := dotenv["repo_root"]; ok && !overridden(opts.Flags, "repo_root") {
		root = fmt.Sprint(r)
	}
	if err := mergeFile(v, opts.Fs, filepath.Join(root, filepath.FromSlash(ProjectFile)), false); err != nil {
		return nil, err
	}
	if len(dotenv) > 0 {
		if err := v.MergeConfigMap(dotenv); err != nil {
			return nil, fmt.Errorf("merging %s: %w", opts.EnvFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.Granularity = strings.ToLower(strings.TrimSpace(cfg.Granularity))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFile layers a yaml file over v. A missing optional file is skipped.
func mergeFile(v *viper.Viper, fs afero.Fs, path string, required bool) error {
	ok, err := afero.Exists(fs, path)
	if err != nil {
		return fmt.Errorf("checking config file %s: %w", path, err)
	}
	if !ok {
		if required {
			return fmt.Errorf("config file %s not found", path)
		}
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// readDotenv returns the QUEST_DASHBOARD_* entries of a dotenv file keyed
// by config key. The process environment is left untouched.
func readDotenv(fs afero.Fs, path string) (map[string]any, error) {
	ok, err := afero.Exists(fs, path)
	if err != nil || !ok {
		return nil, err
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	env, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	out := make(map[string]any)
	for k, val := range env {
		key, ok := strings.CutPrefix(k, EnvPrefix+"_")
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		if _, known := flagKeys[key]; known {
			out[key] = val
		}
	}
	return out, nil
}

// overridden reports whether key is set by the environment or a changed
// flag, the two layers above the dotenv file.
func overridden(flags *pflag.FlagSet, key string) bool {
	if _, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(key)); ok {
		return true
	}
	if flags != nil {
		if f := flags.Lookup(flagKeys[key]); f != nil && f.Changed {
			return true
		}
	}
	return false
}

// settings flattens c into config keys.
func settings(c Config) map[string]any {
	out := make(map[string]any)
	rv := reflect.ValueOf(c)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		out[rt.Field(i).Tag.Get("mapstructure")] = rv.Field(i).Interface()
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}

// Validate checks enumerated and required settings.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		if c.Now != "" {
			if _, perr := store.ParseTimestamp(c.Now); perr != nil {
				return fmt.Errorf("invalid config: now: %w", perr)
			}
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value()))
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Clock returns a fixed clock when Now is set, else time.Now.
func (c *Config) Clock() (func() time.Time, error) {
	if c.Now == "" {
		return time.Now, nil
	}
	t, err := store.ParseTimestamp(c.Now)
	if err != nil {
		return nil, fmt.Errorf("invalid now: %w", err)
	}
	return func() time.Time { return t }, nil
}

// ErrExists is returned by WriteProjectFile when the file is already there.
var ErrExists = errors.New("config file already exists")

// WriteProjectFile writes c as <repoRoot>/.quest/dashboard.yaml. RepoRoot
// itself is omitted since the file's location implies it. An existing file
// is only replaced when force is set.
func WriteProjectFile(fs afero.Fs, repoRoot string, c Config, force bool) (string, error) {
	path := filepath.Join(repoRoot, filepath.FromSlash(ProjectFile))
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", path, err)
	}
	if exists && !force {
		return path, fmt.Errorf("%s: %w", path, ErrExists)
	}

	c.RepoRoot = ""
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
