package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/demensdeum/coverseer/internal/infrastructure/config"
	"github.com/demensdeum/coverseer/internal/infrastructure/logging"
	"github.com/demensdeum/coverseer/internal/output"
)

// recordingSink captures events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *recordingSink) Write(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// failingSink always errors.
type failingSink struct{}

func (failingSink) Write(context.Context, Event) error { return errors.New("sink: write refused") }
func (failingSink) Close() error                       { return errors.New("sink: close refused") }

func TestLineEvent(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		line     output.Line
		wantType EventType
	}{
		{
			name:     "stdout line",
			line:     output.Line{Time: now, Stream: output.StreamStdout, Text: "ready", Generation: 3},
			wantType: EventStdout,
		},
		{
			name:     "stderr line",
			line:     output.Line{Time: now, Stream: output.StreamStderr, Text: "boom", Generation: 3},
			wantType: EventStderr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := LineEvent(tt.line, "session-1", "run-1")
			if ev.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", ev.Type, tt.wantType)
			}
			if ev.Text != tt.line.Text {
				t.Errorf("Text = %q, want %q", ev.Text, tt.line.Text)
			}
			if ev.Generation != 3 {
				t.Errorf("Generation = %d, want 3", ev.Generation)
			}
			if ev.SessionID != "session-1" || ev.RunID != "run-1" {
				t.Errorf("identifiers = %q/%q, want session-1/run-1", ev.SessionID, ev.RunID)
			}
		})
	}
}

func TestFileSinkWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	s := NewFileSink(config.FileSinkConfig{Path: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	t.Cleanup(func() { s.Close() })

	code := 1
	events := []Event{
		{Time: time.Now(), Type: EventStart, RunID: "run-1", Generation: 1, Command: "sleep 60", PID: 1234},
		{Time: time.Now(), Type: EventStdout, RunID: "run-1", Generation: 1, Text: "working"},
		{Time: time.Now(), Type: EventExit, RunID: "run-1", Generation: 1, ExitCode: &code},
	}
	for _, ev := range events {
		if err := s.Write(context.Background(), ev); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening sink file: %v", err)
	}
	defer f.Close()

	var got []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("record %d is not valid JSON: %v", len(got), err)
		}
		got = append(got, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning sink file: %v", err)
	}

	if len(got) != len(events) {
		t.Fatalf("file holds %d records, want %d", len(got), len(events))
	}
	if got[0].Type != EventStart || got[0].PID != 1234 {
		t.Errorf("first record = %+v, want start event with pid 1234", got[0])
	}
	if got[1].Text != "working" {
		t.Errorf("second record text = %q, want %q", got[1].Text, "working")
	}
	if got[2].ExitCode == nil || *got[2].ExitCode != 1 {
		t.Errorf("third record exit code = %v, want 1", got[2].ExitCode)
	}
}

func TestFileSinkConcurrentWritesStayWholeRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	s := NewFileSink(config.FileSinkConfig{Path: path, MaxSize: 10})
	t.Cleanup(func() { s.Close() })

	const writers = 4
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				ev := Event{Time: time.Now(), Type: EventStdout, Text: "concurrent line with enough text to tear if unserialized"}
				if err := s.Write(context.Background(), ev); err != nil {
					t.Errorf("Write() error = %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening sink file: %v", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("record %d is torn: %v", count, err)
		}
		count++
	}
	if count != writers*perWriter {
		t.Errorf("file holds %d records, want %d", count, writers*perWriter)
	}
}

func TestMultiFansOutAndAbsorbsErrors(t *testing.T) {
	rec := &recordingSink{}
	m := NewMulti(logging.Default(), failingSink{}, rec, nil)

	ev := Event{Time: time.Now(), Type: EventRestart, Reason: "exit_failure"}
	if err := m.Write(context.Background(), ev); err != nil {
		t.Fatalf("Write() error = %v, want nil despite failing sink", err)
	}

	if rec.len() != 1 {
		t.Errorf("recording sink received %d events, want 1", rec.len())
	}
}

func TestMultiCloseClosesAllAndReportsFirstError(t *testing.T) {
	rec := &recordingSink{}
	m := NewMulti(logging.Default(), failingSink{}, rec)

	err := m.Close()
	if err == nil {
		t.Error("Close() = nil, want first sink error")
	}
	if !rec.closed {
		t.Error("recording sink not closed")
	}
}

func TestLogSinkEchoesOnlyOutput(t *testing.T) {
	s := NewLogSink(logging.Default())

	for _, ev := range []Event{
		{Type: EventStdout, Text: "hello"},
		{Type: EventState, From: "running", To: "restarting"},
		{Type: EventVerdict, Classification: "healthy"},
	} {
		if err := s.Write(context.Background(), ev); err != nil {
			t.Errorf("Write(%q) error = %v", ev.Type, err)
		}
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
