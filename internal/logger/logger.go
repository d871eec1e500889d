package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Log инициализирован сразу, чтобы пакеты и тесты могли писать до Init.
var Log = logrus.New()

// Init настраивает уровень и формат: JSON для production, текст для development.
func Init(level string, production bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if production {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Silence отключает вывод, используется в тестах.
func Silence() {
	Log.SetOutput(io.Discard)
}
