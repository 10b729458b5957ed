package logutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pion/logging"
)

func TestLogger_NilFactoryIsSilent(t *testing.T) {
	log := Logger(nil, "driver")
	if log == nil {
		t.Fatal("Logger(nil) returned nil")
	}
	log.Errorf("not written anywhere: %d", 1)
}

func TestLogger_UsesFactory(t *testing.T) {
	var buf bytes.Buffer
	factory := logging.NewDefaultLoggerFactory()
	factory.Writer = &buf
	factory.DefaultLogLevel = logging.LogLevelDebug

	Logger(factory, "session").Debugf("state %s", "Reading")

	out := buf.String()
	if !strings.Contains(out, "session") || !strings.Contains(out, "state Reading") {
		t.Errorf("log output = %q", out)
	}
}
