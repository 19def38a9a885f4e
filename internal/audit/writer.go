package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tkingovr/xapictl/api"
)

const dayLayout = "2006-01-02"

// JSONLStore is an append-only JSONL file audit store with date-based
// rotation. Reads scan the day files on disk so history spans invocations.
type JSONLStore struct {
	mu          sync.Mutex
	dir         string
	currentDate string
	file        *os.File
	writer      *bufio.Writer
}

// NewJSONLStore creates a new JSONL audit store writing to the given directory.
func NewJSONLStore(dir string) (*JSONLStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	return &JSONLStore{dir: dir}, nil
}

func (s *JSONLStore) Write(_ context.Context, record *api.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	dateStr := record.Timestamp.Format(dayLayout)
	if dateStr != s.currentDate {
		if err := s.rotate(dateStr); err != nil {
			return err
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *JSONLStore) Query(ctx context.Context, filter api.QueryFilter) ([]*api.AuditRecord, error) {
	results, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return nil, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results, nil
}

func (s *JSONLStore) Stats(ctx context.Context, filter api.QueryFilter) (*api.AuditStats, error) {
	records, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &api.AuditStats{
		ByCall:      make(map[string]int),
		ByErrorKind: make(map[string]int),
	}

	for _, r := range records {
		stats.TotalCalls++
		switch r.Verdict {
		case api.VerdictAllow:
			stats.AllowCount++
		case api.VerdictDeny:
			stats.DenyCount++
		case api.VerdictAsk:
			stats.AskCount++
		case api.VerdictLog:
			stats.LogCount++
		}
		switch r.Outcome {
		case api.OutcomeSuccess:
			stats.SuccessCount++
		case api.OutcomeFailure:
			stats.FailureCount++
		case api.OutcomeBlocked:
			stats.BlockedCount++
		}
		stats.ByCall[r.Call()]++
		if r.ErrorKind != "" {
			stats.ByErrorKind[string(r.ErrorKind)]++
		}
	}

	return stats, nil
}

func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		err := s.file.Close()
		s.file, s.writer, s.currentDate = nil, nil, ""
		return err
	}
	return nil
}

func (s *JSONLStore) rotate(dateStr string) error {
	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
	}

	path := filepath.Join(s.dir, dateStr+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("opening audit log file: %w", err)
	}

	s.file = f
	s.writer = bufio.NewWriter(f)
	s.currentDate = dateStr
	return nil
}

// scan reads every day file that can hold matching records and returns
// the matches newest first.
func (s *JSONLStore) scan(ctx context.Context, filter api.QueryFilter) ([]*api.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return nil, err
		}
	}

	days, err := s.days()
	if err != nil {
		return nil, err
	}

	var results []*api.AuditRecord
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !dayInRange(day, filter) {
			continue
		}
		records, err := readDay(filepath.Join(s.dir, day+".jsonl"))
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if matchesFilter(r, filter) {
				results = append(results, r)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	return results, nil
}

// days lists the dates that have a log file, newest first.
func (s *JSONLStore) days() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing audit log directory: %w", err)
	}
	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		day := strings.TrimSuffix(name, ".jsonl")
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// dayInRange skips whole files outside the filter window, with a day of
// slack either side for records stamped in another time zone.
func dayInRange(day string, f api.QueryFilter) bool {
	d, err := time.Parse(dayLayout, day)
	if err != nil {
		return false
	}
	if !f.Since.IsZero() && d.Add(48*time.Hour).Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && d.Add(-24*time.Hour).After(f.Until) {
		return false
	}
	return true
}

func readDay(path string) ([]*api.AuditRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log file: %w", err)
	}
	defer f.Close()

	var records []*api.AuditRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var r api.AuditRecord
		if err := json.Unmarshal(line, &r); err != nil {
			// A torn trailing line from an interrupted write is skipped.
			continue
		}
		records = append(records, &r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func matchesFilter(r *api.AuditRecord, f api.QueryFilter) bool {
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	if f.Class != "" && r.Class != f.Class {
		return false
	}
	if f.Method != "" && r.Method != f.Method {
		return false
	}
	if f.Verdict != "" && r.Verdict != f.Verdict {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	return true
}
