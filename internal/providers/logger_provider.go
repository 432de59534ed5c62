package providers

import (
	"chathelper/internal/structures"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

type TypeEnum uint8

const (
	TypeApp TypeEnum = iota
	TypeGet
	TypePost
)

type Logger interface {
	Errorf(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Debugf(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

func GetLogTypeByRequestType(method string) TypeEnum {
	if method == http.MethodPost {
		return TypePost
	}
	return TypeGet
}

type LogProvider struct {
	app     zerolog.Logger
	access  zerolog.Logger
	appFile *os.File
	accFile *os.File
}

func NewLogProvider(conf *structures.Config) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, err
	}

	mode := os.FileMode(conf.Logger.Mode)
	appFile, err := os.OpenFile(filepath.Join(conf.Logger.Dir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode)
	if err != nil {
		return nil, err
	}
	accFile, err := os.OpenFile(filepath.Join(conf.Logger.Dir, "access.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode)
	if err != nil {
		appFile.Close()
		return nil, err
	}

	lp := &LogProvider{
		appFile: appFile,
		accFile: accFile,
	}
	if conf.Debug {
		lp.app = zerolog.New(zerolog.MultiLevelWriter(appFile, zerolog.ConsoleWriter{Out: os.Stderr})).Level(level).With().Timestamp().Logger()
	} else {
		lp.app = zerolog.New(appFile).Level(level).With().Timestamp().Logger()
	}
	lp.access = zerolog.New(accFile).Level(level).With().Timestamp().Logger()

	return lp, nil
}

func (lp *LogProvider) byType(t TypeEnum) *zerolog.Logger {
	if t == TypeApp {
		return &lp.app
	}
	return &lp.access
}

func (lp *LogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	lp.byType(t).Error().Msgf(format, args...)
}

func (lp *LogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	lp.byType(t).Warn().Msgf(format, args...)
}

func (lp *LogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	lp.byType(t).Info().Msgf(format, args...)
}

func (lp *LogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	lp.byType(t).Debug().Msgf(format, args...)
}

func (lp *LogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	lp.byType(t).Fatal().Msgf(format, args...)
}

func (lp *LogProvider) Close() {
	_ = lp.appFile.Close()
	_ = lp.accFile.Close()
}
