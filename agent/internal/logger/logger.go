package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// L is silent until Init is called so packages can log from tests.
var L = zerolog.Nop()

// Init routes output to path (append) or stdout. Debug lowers the
// level so per-message tracing is only emitted in debug builds.
func Init(path string, debug bool) error {
	var w io.Writer = os.Stdout
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = file
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	L = log.Output(zerolog.ConsoleWriter{Out: w}).Level(level)
	return nil
}

func Info(v ...interface{})             { L.Info().Msg(fmt.Sprint(v...)) }
func Warn(v ...interface{})             { L.Warn().Msg(fmt.Sprint(v...)) }
func Error(v ...interface{})            { L.Error().Msg(fmt.Sprint(v...)) }
func Debugf(f string, v ...interface{}) { L.Debug().Msgf(f, v...) }
func Infof(f string, v ...interface{})  { L.Info().Msgf(f, v...) }
func Warnf(f string, v ...interface{})  { L.Warn().Msgf(f, v...) }
func Errorf(f string, v ...interface{}) { L.Error().Msgf(f, v...) }
