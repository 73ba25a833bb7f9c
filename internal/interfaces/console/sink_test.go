package console

import (
	"bytes"
	"testing"
	"time"
)

func TestSinkOutput(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	_ = s.WriteLive("\rlive")
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	_ = s.WriteSnapshot(ts, "snap")
	_ = s.NewLine()

	want := "\rlive\n2024-05-01 12:30:00 snap\n\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
