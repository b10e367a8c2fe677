package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a state change the shopper caused.
type AuditEventType string

const (
	// Session lifecycle
	AuditSessionCreate AuditEventType = "session_create"

	// Cart writes
	AuditCartAdd    AuditEventType = "cart_add"
	AuditCartUpdate AuditEventType = "cart_update"
	AuditCartRemove AuditEventType = "cart_remove"

	// Checkout handoff
	AuditCheckout AuditEventType = "checkout"

	// Payment outcome
	AuditPaymentSuccess AuditEventType = "payment_success"
	AuditPaymentFailed  AuditEventType = "payment_failed"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent is one JSON line in the audit log.
type AuditEvent struct {
	Timestamp int64          `json:"ts"` // Unix milliseconds
	EventType AuditEventType `json:"event"`
	SessionID string         `json:"session,omitempty"`
	// Target is the product or receipt ID.
	Target   string  `json:"target,omitempty"`
	Quantity int     `json:"qty,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger writes audit events, optionally scoped to a session.
type AuditLogger struct {
	sessionID string
}

// InitAudit opens <logs>/<date>_audit.log. It does nothing unless debug mode is
// on and logs go to files.
func InitAudit() error {
	configMu.RLock()
	s := settings
	dir := logsDir
	configMu.RUnlock()

	if !s.DebugMode || s.Stderr {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, fmt.Sprintf("%s_audit.log", date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithSession returns an audit logger that stamps sessionID on every event.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// Log writes event as a JSON line. Without an open audit file it is a no-op.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// SessionCreate logs a freshly minted session token.
func (a *AuditLogger) SessionCreate(sessionID string) {
	a.Log(AuditEvent{EventType: AuditSessionCreate, SessionID: sessionID, Success: true})
}

// CartWrite logs an add, quantity change or removal.
func (a *AuditLogger) CartWrite(op AuditEventType, productID string, qty int, err error) {
	a.Log(AuditEvent{
		EventType: op,
		Target:    productID,
		Quantity:  qty,
		Success:   err == nil,
		Error:     errString(err),
	})
}

// Checkout logs a checkout attempt.
func (a *AuditLogger) Checkout(receiptID string, total float64, err error) {
	a.Log(AuditEvent{
		EventType: AuditCheckout,
		Target:    receiptID,
		Amount:    total,
		Success:   err == nil,
		Error:     errString(err),
	})
}

// Payment logs a payment outcome.
func (a *AuditLogger) Payment(receiptID string, amount float64, err error) {
	op := AuditPaymentSuccess
	if err != nil {
		op = AuditPaymentFailed
	}
	a.Log(AuditEvent{
		EventType: op,
		Target:    receiptID,
		Amount:    amount,
		Success:   err == nil,
		Error:     errString(err),
	})
}
