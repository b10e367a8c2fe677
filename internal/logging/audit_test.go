package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAudit(t *testing.T, dir string) []AuditEvent {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var events []AuditEvent
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), "_audit.log") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			var ev AuditEvent
			require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
			events = append(events, ev)
		}
		f.Close()
	}
	return events
}

func TestAuditWritesJSONLines(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()
	require.NoError(t, Initialize(tempDir, Settings{DebugMode: true, Level: "info"}))

	a := AuditWithSession("session-1-abc")
	a.SessionCreate("session-1-abc")
	a.CartWrite(AuditCartUpdate, "p1", 3, nil)
	a.CartWrite(AuditCartRemove, "p2", 0, errors.New("boom"))
	a.Checkout("R-1", 33, nil)
	a.Payment("R-1", 33, nil)

	CloseAll()

	events := readAudit(t, filepath.Join(tempDir, ".storefront", "logs"))
	require.Len(t, events, 5)

	assert.Equal(t, AuditSessionCreate, events[0].EventType)
	assert.Equal(t, "session-1-abc", events[1].SessionID)
	assert.Equal(t, 3, events[1].Quantity)
	assert.False(t, events[2].Success)
	assert.Equal(t, "boom", events[2].Error)
	assert.Equal(t, AuditCheckout, events[3].EventType)
	assert.Equal(t, AuditPaymentSuccess, events[4].EventType)
	assert.NotZero(t, events[4].Timestamp)
}

func TestAuditDisabledWithoutDebugMode(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()
	require.NoError(t, Initialize(tempDir, Settings{}))

	Audit().Payment("R-1", 10, errors.New("declined"))
	CloseAll()

	_, err := os.Stat(filepath.Join(tempDir, ".storefront", "logs"))
	assert.True(t, os.IsNotExist(err))
}
