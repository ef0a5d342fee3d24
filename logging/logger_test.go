package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestCustomFormatter(t *testing.T) {
	f := &CustomFormatter{SystemName: "workhub-server"}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Event ID: TEST, Description: hello",
		Data:    logrus.Fields{"taskId": "abc"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	line := string(out)

	for _, want := range []string{
		"Date: 2025-01-02, Time: 15:04:05",
		"Event Source: workhub-server",
		"Event Type: WARNING",
		"Message: Event ID: TEST, Description: hello",
		"taskId: abc",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected %q in %q", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("Expected trailing newline")
	}
}
