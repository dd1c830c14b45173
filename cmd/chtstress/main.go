// Command chtstress drives a cht.Table with concurrent readers and writers for a while and then verifies it.
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

func main() {
	app := kingpin.New("chtstress", "Stress and verify a concurrent hash table.")
	app.HelpFlag.Short('h')

	wl := &workloadFlags{}
	wl.register(app)
	logLevel := app.Flag("log.level", "Only log messages with the given severity or above. One of: [debug, info, warn, error]").
		Default("info").Enum("debug", "info", "warn", "error")

	logger := func() log.Logger {
		l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		l = level.NewFilter(l, allowLevel(*logLevel))
		return log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	}

	addRunCommand(app, wl, logger)
	addConfigCommand(app, wl)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func allowLevel(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
