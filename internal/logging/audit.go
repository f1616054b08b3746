package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names one kind of verification audit event.
type AuditEventType string

const (
	AuditVerifyStart    AuditEventType = "verify_start"
	AuditVerifyComplete AuditEventType = "verify_complete"
	AuditVerifyError    AuditEventType = "verify_error"
	AuditLLMCall        AuditEventType = "llm_call"
	AuditFallback       AuditEventType = "classifier_fallback"
	AuditStatusWrite    AuditEventType = "status_write"
)

// AuditEvent is one JSON line in the audit log.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	RequestID  string                 `json:"req,omitempty"`
	Target     string                 `json:"target,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger writes audit events scoped to one request.
type AuditLogger struct {
	requestID string
}

// InitAudit opens the audit log. It is a no-op outside debug mode.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.jsonl", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns an audit logger for the given request id.
func Audit(requestID string) *AuditLogger {
	return &AuditLogger{requestID: requestID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RequestID == "" {
		event.RequestID = a.requestID
	}

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// VerifyStart records the start of a verification run.
func (a *AuditLogger) VerifyStart(claimLen, contextItems int) {
	a.Log(AuditEvent{
		EventType: AuditVerifyStart,
		Success:   true,
		Fields:    map[string]interface{}{"claim_len": claimLen, "context_items": contextItems},
	})
}

// VerifyComplete records a finished verification run.
func (a *AuditLogger) VerifyComplete(status string, confidence float64, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditVerifyComplete,
		Target:     status,
		Success:    true,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"confidence": confidence},
	})
}

// VerifyError records a failed verification run.
func (a *AuditLogger) VerifyError(err error, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditVerifyError,
		DurationMs: durationMs,
		Error:      err.Error(),
	})
}

// LLMCall records one generation call.
func (a *AuditLogger) LLMCall(model, purpose string, durationMs int64, err error) {
	ev := AuditEvent{
		EventType:  AuditLLMCall,
		Target:     model,
		Success:    err == nil,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"purpose": purpose},
	}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// ClassifierFallback records a verdict that fell back to the default.
func (a *AuditLogger) ClassifierFallback(rawLen int) {
	a.Log(AuditEvent{
		EventType: AuditFallback,
		Success:   true,
		Fields:    map[string]interface{}{"raw_len": rawLen},
	})
}

// StatusWrite records a post status write.
func (a *AuditLogger) StatusWrite(postID, status string, err error) {
	ev := AuditEvent{EventType: AuditStatusWrite, Target: postID, Success: err == nil,
		Fields: map[string]interface{}{"status": status}}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}
