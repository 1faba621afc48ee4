package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/macrosim/internal/engine"
)

// PeriodLog writes one JSON line per period row into <dir>/<run>.jsonl.zst.
type PeriodLog struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// PeriodLogPath returns the file a run's period log is written to.
func PeriodLogPath(dir, runID string) string {
	return filepath.Join(dir, runID+".jsonl.zst")
}

// CreatePeriodLog creates (or truncates) the period log for a run.
func CreatePeriodLog(dir, runID string) (*PeriodLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create period log dir: %w", err)
	}
	path := PeriodLogPath(dir, runID)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create period log: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &PeriodLog{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Path returns the log file path.
func (l *PeriodLog) Path() string { return l.path }

// Write appends one row.
func (l *PeriodLog) Write(row engine.PeriodRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return os.ErrClosed
	}

	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	return l.w.WriteByte('\n')
}

// Close flushes and closes the log. Rows are only durable after Close.
func (l *PeriodLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	var errs []error
	errs = append(errs, l.w.Flush())
	errs = append(errs, l.enc.Close())
	errs = append(errs, l.f.Close())
	l.w, l.enc, l.f = nil, nil, nil
	return errors.Join(errs...)
}

// ReadPeriodLog decodes every row of a period log file.
func ReadPeriodLog(path string) ([]engine.PeriodRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open period log: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var rows []engine.PeriodRow
	jd := json.NewDecoder(dec)
	for {
		var row engine.PeriodRow
		if err := jd.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return rows, fmt.Errorf("decode period log row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Recorder copies every completed period into the history store and the
// period log. Either may be nil.
type Recorder struct {
	DB    *DB
	Log   *PeriodLog
	RunID string
}

// Record stores one row. Failures are logged and do not stop the simulation.
func (r *Recorder) Record(row engine.PeriodRow) {
	if r.DB != nil {
		if err := r.DB.SaveRow(r.RunID, row); err != nil {
			slog.Error("failed to save period", "run", r.RunID, "period", row.Period, "error", err)
		}
	}
	if r.Log != nil {
		if err := r.Log.Write(row); err != nil {
			slog.Error("failed to log period", "run", r.RunID, "period", row.Period, "error", err)
		}
	}
}

// RecordAll stores rows already held in memory, such as the construction row.
func (r *Recorder) RecordAll(rows []engine.PeriodRow) {
	for _, row := range rows {
		r.Record(row)
	}
}
