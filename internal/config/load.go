package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads settings with the usual priority: environment variables over a
// config file over defaults. An empty configPath searches the working
// directory for config.yaml; a missing file is not an error.
func Load(configPath string) (*Settings, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("enabled", def.Enabled)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("radius_ly", def.RadiusLY)
	v.SetDefault("max_jump_ly", def.MaxJumpLY)
	v.SetDefault("data_source", def.DataSource)
	v.SetDefault("local_file_path", def.LocalFilePath)
	v.SetDefault("local_db_path", def.LocalDBPath)
	v.SetDefault("tie_break", def.TieBreak)
	v.SetDefault("auto_copy", def.AutoCopy)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SURVEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Only an absent default config file is tolerated.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || configPath != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
