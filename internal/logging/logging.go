// Package logging holds the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is shared by every package. Init configures it once at startup; until then it logs at info to stderr.
var Logger = logrus.New()

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Data["app"] = h.appName
	return nil
}

// Init sets output, level, and formatter. level is a logrus level name; format is "json" or "text".
func Init(appName, level, format string) {
	InitWithOutput(os.Stdout, appName, level, format)
}

// InitWithOutput is Init with an explicit writer.
func InitWithOutput(w io.Writer, appName, level, format string) {
	Logger.SetOutput(w)

	lvlStr := strings.ToLower(strings.TrimSpace(level))
	if lvlStr == "" {
		lvlStr = "info"
	}
	lvl, err := logrus.ParseLevel(lvlStr)
	if err != nil {
		Logger.Warnf("logging: invalid LOG_LEVEL %q, defaulting to info", level)
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	Logger.ReplaceHooks(make(logrus.LevelHooks))
	if appName != "" {
		Logger.AddHook(&appNameHook{appName: appName})
	}
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}
