package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/claimharvest/internal/model"
)

// RunLogEntry is one line of the per-run fetch audit log.
type RunLogEntry struct {
	Timestamp string `json:"ts"`
	Seed      string `json:"seed"`
	Authority string `json:"authority"` // REGISTRY_CLAIMS / REGISTRY_FAMILY / SECONDARY
	Target    string `json:"target"`
	Status    string `json:"status"`
	CacheHit  bool   `json:"cache_hit"`
	Retries   int    `json:"retries"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Writer appends extraction records and run-log entries as JSONL.
// Records are append-only; nothing is ever rewritten.
type Writer struct {
	records *os.File
	runLog  *os.File
}

// RunLogPath derives the run-log path from a records path when the
// configuration leaves it empty.
func RunLogPath(recordsPath string) string {
	return strings.TrimSuffix(recordsPath, ".jsonl") + ".runlog.jsonl"
}

// NewWriter opens (appending) the records and run-log files.
func NewWriter(recordsPath, runLogPath string) (*Writer, error) {
	if runLogPath == "" {
		runLogPath = RunLogPath(recordsPath)
	}
	records, err := os.OpenFile(recordsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	runLog, err := os.OpenFile(runLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &Writer{records: records, runLog: runLog}, nil
}

// WriteRecord appends one extraction record.
func (w *Writer) WriteRecord(rec model.ExtractionRecord) error {
	return writeLine(w.records, rec)
}

// WriteRunLog appends one fetch audit entry.
func (w *Writer) WriteRunLog(entry RunLogEntry) error {
	return writeLine(w.runLog, entry)
}

// Close closes both files.
func (w *Writer) Close() error {
	recErr := w.records.Close()
	logErr := w.runLog.Close()
	if recErr != nil {
		return recErr
	}
	return logErr
}

func writeLine(f *os.File, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// ReadRecords loads a JSONL records file, skipping blank lines. Used by
// the lineage gate command.
func ReadRecords(path string) ([]model.ExtractionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var out []model.ExtractionRecord
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec model.ExtractionRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("invalid JSON at line %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
