package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTerminalStatus(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{ScanStatusProcessing, false},
		{ScanStatusQueued, false},
		{ScanStatusUnderReview, false},
		{ScanStatusIssues, true},
		{ScanStatusNoIssues, true},
		{ScanStatusFailed, true},
		{"", false},
		{"processing", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.terminal, IsTerminalStatus(tt.status))
			scan := &Scan{Status: tt.status}
			assert.Equal(t, tt.terminal, scan.IsTerminal())
		})
	}
}

func TestPendingStatuses(t *testing.T) {
	pending := PendingStatuses()

	require.Len(t, pending, 3)
	for _, status := range pending {
		assert.False(t, IsTerminalStatus(status))
	}
}

func TestJSONListScan(t *testing.T) {
	var findings JSONList[Finding]

	err := findings.Scan([]byte(`[{"id":"F-1","name":"Unchecked transfer","severity":"High"}]`))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "F-1", findings[0].ID)

	// MySQL drivers may hand back text columns as string
	err = findings.Scan(`[{"id":"F-2","name":"Reentrancy","severity":"Medium"}]`)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "F-2", findings[0].ID)

	err = findings.Scan(nil)
	require.NoError(t, err)
	assert.Nil(t, findings)

	assert.Error(t, findings.Scan(42))
}

func TestJSONListValueNil(t *testing.T) {
	var tags JSONList[string]

	v, err := tags.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
