package cosign

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/iov-one/cosign/errors"
)

func TestUnixTimeUnmarshal(t *testing.T) {
	cases := map[string]struct {
		raw      string
		wantTime UnixTime
		wantErr  *errors.Error
	}{
		"zero time as number": {
			raw:      "0",
			wantTime: 0,
		},
		"zero time as string": {
			raw:      `"1970-01-01T01:00:00+01:00"`,
			wantTime: 0,
		},
		"a time as string": {
			raw:      `"2019-04-04T11:35:40.89181085+02:00"`,
			wantTime: 1554370540,
		},
		"a time as number": {
			raw:      "1554370540",
			wantTime: 1554370540,
		},
		"a time as numeric string": {
			raw:      `"1554370540"`,
			wantTime: 1554370540,
		},
		"negative number": {
			raw:     "-1",
			wantErr: errors.ErrInput,
		},
		"negative time as string": {
			raw:     `"1950-01-01T01:00:00+01:00"`,
			wantErr: errors.ErrInput,
		},
		"invalid string": {
			raw:     `"not a time string"`,
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var got UnixTime
			err := json.Unmarshal([]byte(tc.raw), &got)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %s", err)
			}
			if got != tc.wantTime {
				t.Fatalf("want %d time, got %d", tc.wantTime, got)
			}
		})
	}
}

func TestUnixTimeMarshalRoundTrip(t *testing.T) {
	want := UnixTime(1700000000)
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("cannot marshal: %s", err)
	}
	if string(raw) != `"1700000000"` {
		t.Fatalf("unexpected representation: %s", raw)
	}
	var got UnixTime
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("cannot unmarshal: %s", err)
	}
	if got != want {
		t.Fatalf("want %d, got %d", want, got)
	}
}

func TestUnixTimeAdd(t *testing.T) {
	base := AsUnixTime(time.Unix(1000, 0))
	if got := base.Add(-time.Second); got != 999 {
		t.Fatalf("want 999, got %d", got)
	}
	if got := base.Add(time.Hour); got != 4600 {
		t.Fatalf("want 4600, got %d", got)
	}
	if !base.Before(base.Add(time.Second)) {
		t.Fatal("time must be before a later time")
	}
}
