package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Init configures the global logrus logger. Production gets JSON lines, every
// other environment gets the human-readable text formatter.
func Init(level, environment string) {
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(environment, "production") {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL %q, using info", level)
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}

var dedup = &deduplicator{
	flushDelay: 2 * time.Second,
}

type deduplicator struct {
	mu         sync.Mutex
	lastMsg    string
	count      int
	flushDelay time.Duration
	timer      *time.Timer
	emit       func(string)
}

func (d *deduplicator) flush() {
	if d.count == 0 {
		return
	}
	out := d.emit
	if out == nil {
		out = func(msg string) { logrus.Info(msg) }
	}
	if d.count == 1 {
		out(d.lastMsg)
	} else {
		out(fmt.Sprintf("%s (%d)", d.lastMsg, d.count))
	}
	d.count = 0
	d.lastMsg = ""
}

func (d *deduplicator) schedule() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.flushDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flush()
	})
}

func (d *deduplicator) log(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if msg == d.lastMsg {
		d.count++
		d.schedule()
		return
	}

	d.flush()
	d.lastMsg = msg
	d.count = 1
	d.schedule()
}

// Dedup logs at info level, folding identical consecutive messages into one
// line with a repeat count once they stop arriving.
func Dedup(format string, args ...any) {
	dedup.log(fmt.Sprintf(format, args...))
}
