package logsvc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/user"
)

func TestRollbarLogger(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		logFn   func(l *RollbarLogger)
		want    []string
		notWant []string
	}{
		{
			name:    "warn with error and user",
			logFn:   func(l *RollbarLogger) { l.Warn("source failed", errors.New("timeout"), user.User{ID: "u1", Email: "secret@x.io"}) },
			want:    []string{"WARN: source failed", "timeout"},
			notWant: []string{"secret@x.io"},
		},
		{
			name:    "debug is silent outside debug mode",
			logFn:   func(l *RollbarLogger) { l.Debug("noise") },
			notWant: []string{"noise"},
		},
		{
			name:  "debug mode",
			debug: true,
			logFn: func(l *RollbarLogger) { l.Debug("details", map[string]int{"n": 1}) },
			want:  []string{"DEBUG: details", "map[n:1]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			l := NewRollbarLogger(log.New(buf, "", 0), &core.Config{Debug: tt.debug})
			tt.logFn(l)

			out := buf.String()
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notWant {
				assert.False(t, strings.Contains(out, s), "unexpected %q in %q", s, out)
			}
		})
	}
}
