package cosign

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iov-one/cosign/errors"
)

func TestNewLogger(t *testing.T) {
	cases := map[string]struct {
		format   string
		level    string
		wantErr  *errors.Error
		wantInfo bool
	}{
		"plain info": {
			format:   "plain",
			level:    "info",
			wantInfo: true,
		},
		"json with defaults": {
			format:   "json",
			wantInfo: true,
		},
		"error level hides info": {
			format:   "plain",
			level:    "error",
			wantInfo: false,
		},
		"unknown format": {
			format:  "xml",
			wantErr: errors.ErrInput,
		},
		"unknown level": {
			format:  "plain",
			level:   "loud",
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(&buf, tc.format, tc.level)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %s", err)
			}
			if tc.wantErr != nil {
				return
			}
			logger.Info("proposal created", "id", 1)
			if got := strings.Contains(buf.String(), "proposal created"); got != tc.wantInfo {
				t.Fatalf("want info logged %v, got %q", tc.wantInfo, buf.String())
			}
		})
	}
}
