// Package common provides the logging setup and a few constants shared by
// all parts of the application.
package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/logutils"
	"github.com/ytget/phin/internal/logdomain"
)

// AppName is the name of the application, used for log prefixes and default
// file names.
const AppName = "phin"

// Debug enables additional diagnostic output.
var Debug bool

// LogLevels are the log levels we recognize, ordered by severity.
var LogLevels = []logutils.LogLevel{
	"TRACE",
	"DEBUG",
	"INFO",
	"WARN",
	"ERROR",
	"CRITICAL",
	"CANTHAPPEN",
}

// DefaultLogLevel is the minimum level written unless configured otherwise.
const DefaultLogLevel = "INFO"

var (
	logLock  sync.Mutex
	minLevel logutils.LogLevel = DefaultLogLevel
	logOut   io.Writer         = os.Stderr
)

// SetLogLevel sets the minimum level for loggers created afterwards.
func SetLogLevel(level string) error {
	lvl := logutils.LogLevel(strings.ToUpper(strings.TrimSpace(level)))
	for _, known := range LogLevels {
		if known == lvl {
			logLock.Lock()
			minLevel = lvl
			Debug = lvl == "TRACE" || lvl == "DEBUG"
			logLock.Unlock()
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q", level)
} // func SetLogLevel(level string) error

// SetLogOutput redirects the output of loggers created afterwards.
func SetLogOutput(w io.Writer) {
	logLock.Lock()
	logOut = w
	logLock.Unlock()
}

// GetLogger returns a Logger for the given log domain. Messages are expected
// to start with a level tag like "[INFO]" and are dropped when their level is
// below the configured minimum.
func GetLogger(dom logdomain.ID) (*log.Logger, error) {
	if !dom.Valid() {
		return nil, fmt.Errorf("invalid log domain %d", dom)
	}

	logLock.Lock()
	defer logLock.Unlock()

	var (
		name   = fmt.Sprintf("%s.%-10s ", AppName, dom.String())
		filter = &logutils.LevelFilter{
			Levels:   LogLevels,
			MinLevel: minLevel,
			Writer:   logOut,
		}
	)

	return log.New(filter, name, log.Ldate|log.Ltime), nil
} // func GetLogger(dom logdomain.ID) (*log.Logger, error)
