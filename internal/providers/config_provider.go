package providers

import (
	"chathelper/internal/structures"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "CHATHELPER_LOG_LEVEL")
	viper.BindEnv("persistence.saveInterval", "CHATHELPER_SAVE_INTERVAL")
	viper.BindEnv("bridge.requestTimeout", "CHATHELPER_BRIDGE_TIMEOUT")
	viper.BindEnv("cache.enabled", "CHATHELPER_CACHE_ENABLED")
	viper.BindEnv("cache.size", "CHATHELPER_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	if conf.Bridge.RequestTimeout <= 0 {
		conf.Bridge.RequestTimeout = 10 * time.Second
	}
	if conf.Resolver.CacheTTL <= 0 {
		conf.Resolver.CacheTTL = 10 * time.Second
	}

	conf.AppName = "ChatHelperDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
