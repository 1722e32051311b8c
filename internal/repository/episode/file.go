package episode

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/noise-monitor/internal/config"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
)

// Repository defines persistence operations for alert episodes.
type Repository interface {
	Record(ctx context.Context, e *domain.Episode) error
	List(ctx context.Context) ([]*domain.Episode, error)
}

// FileJournal appends episodes to a JSON lines file on disk.
// Records are produced and consumed via protobuf JSON (protojson) so the
// same structpb messages serve the journal and the control API.
type FileJournal struct {
	// path is the filesystem location of the journal.
	path string
	// mu serialises appends and reads.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the journal does not exist yet.
	ErrNotFound = errors.New("journal not found")
	// errMalformedRecord is returned for a line missing required fields.
	errMalformedRecord = errors.New("malformed episode record")
)

// maxLineSize bounds a single journal line.
const maxLineSize = 64 * 1024

// NewFileJournal creates a journal that appends to the provided path.
func NewFileJournal(path string) *FileJournal {
	return &FileJournal{
		path: filepath.Clean(path),
	}
}

// Path returns the journal location.
func (j *FileJournal) Path() string {
	return j.path
}

// Record appends e to the journal.
func (j *FileJournal) Record(_ context.Context, e *domain.Episode) error {
	record, err := toProto(e)
	if err != nil {
		return fmt.Errorf("encode episode: %w", err)
	}

	data, err := protojson.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode episode: %w", err)
	}

	// protojson output is unstable in whitespace; compact it to one line.
	var line bytes.Buffer
	if err = json.Compact(&line, data); err != nil {
		return fmt.Errorf("compact episode: %w", err)
	}

	line.WriteByte('\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	if _, err = f.Write(line.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write journal: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}

	return nil
}

// List reads every episode in the order they were recorded.
func (j *FileJournal) List(ctx context.Context) ([]*domain.Episode, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("open journal: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	var (
		episodes []*domain.Episode
		scanner  = bufio.NewScanner(f)
		lineNo   int
	)

	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		lineNo++

		if err = ctx.Err(); err != nil {
			return nil, err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record structpb.Struct
		if err = protojson.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("decode journal line %d: %w", lineNo, err)
		}

		e, err := fromProto(&record)
		if err != nil {
			return nil, fmt.Errorf("decode journal line %d: %w", lineNo, err)
		}

		episodes = append(episodes, e)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	return episodes, nil
}

// toProto converts a domain Episode into a structpb record.
func toProto(e *domain.Episode) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"started_at":  e.StartedAt.UTC().Format(time.RFC3339Nano),
		"ended_at":    e.EndedAt.UTC().Format(time.RFC3339Nano),
		"peak_level":  e.PeakLevel,
		"threshold":   e.Threshold,
		"end_reason":  string(e.EndReason),
		"duration_ms": e.Duration().Milliseconds(),
	})
}

// fromProto converts a structpb record into a domain Episode.
func fromProto(record *structpb.Struct) (*domain.Episode, error) {
	fields := record.GetFields()

	started, err := time.Parse(time.RFC3339Nano, fields["started_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: started_at: %w", errMalformedRecord, err)
	}

	ended, err := time.Parse(time.RFC3339Nano, fields["ended_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: ended_at: %w", errMalformedRecord, err)
	}

	return &domain.Episode{
		StartedAt: started,
		EndedAt:   ended,
		PeakLevel: fields["peak_level"].GetNumberValue(),
		Threshold: fields["threshold"].GetNumberValue(),
		EndReason: domain.EndReason(fields["end_reason"].GetStringValue()),
	}, nil
}
