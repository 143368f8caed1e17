package hub

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khanglvm/api-hub-mcp/internal/security"
	"github.com/khanglvm/api-hub-mcp/internal/synth"
)

// AuditRecord captures one resolution attempt, accepted or not.
type AuditRecord struct {
	RecordID   string    `json:"record_id"`
	Timestamp  time.Time `json:"timestamp"`
	APIID      string    `json:"api_id"`
	Intent     string    `json:"intent"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	Confidence float64   `json:"confidence"`
	Accepted   bool      `json:"accepted"`
	Reason     string    `json:"reason"`
}

// AuditSink receives records. Implementations must be safe for
// concurrent use.
type AuditSink interface {
	Write(record *AuditRecord) error
}

// AuditLog fans resolution records out to a sink without blocking the
// resolution path. Write failures are logged and dropped; auditing
// never fails a call.
type AuditLog struct {
	sink AuditSink
	wg   sync.WaitGroup
}

// NewAuditLog creates an audit log. A nil sink disables auditing.
func NewAuditLog(sink AuditSink) *AuditLog {
	return &AuditLog{sink: sink}
}

// Record emits one record asynchronously.
func (a *AuditLog) Record(apiID, intent string, candidate *synth.Candidate, verdict *security.Verdict) {
	if a.sink == nil {
		return
	}

	record := &AuditRecord{
		RecordID:   uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		APIID:      apiID,
		Intent:     intent,
		Endpoint:   candidate.Endpoint,
		Method:     candidate.Method,
		Confidence: candidate.Confidence,
		Accepted:   verdict.Accepted,
		Reason:     string(verdict.Reason),
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.sink.Write(record); err != nil {
			log.Printf("Warning: failed to write audit record: %v", err)
		}
	}()
}

// Flush waits for in-flight records. Call before process exit.
func (a *AuditLog) Flush() {
	a.wg.Wait()
}

// FileSink appends records as JSON lines to a file.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates a sink appending to path, creating parent
// directories as needed.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &FileSink{path: path}, nil
}

// Write implements AuditSink.
func (s *FileSink) Write(record *AuditRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}
