package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/demensdeum/coverseer/internal/infrastructure/config"
)

// FileSink appends events as NDJSON to a rotating file. Rotation is
// size-based with bounded backups, so a chatty child cannot fill the
// disk.
type FileSink struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	enc *json.Encoder
}

// NewFileSink creates a rotating NDJSON file sink. The file and its
// parent directories are created lazily on first write.
func NewFileSink(cfg config.FileSinkConfig) *FileSink {
	out := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return &FileSink{
		out: out,
		enc: json.NewEncoder(out),
	}
}

// Write appends one NDJSON record. The encoder is serialized so
// concurrent writers cannot interleave partial records.
func (s *FileSink) Write(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(ev); err != nil {
		return fmt.Errorf("sink: encoding event: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
