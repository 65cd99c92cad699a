package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateConstants(t *testing.T) {
	assert.Equal(t, "pending", StatePending)
	assert.Equal(t, "success", StateSuccess)
	assert.Equal(t, "fail", StateFail)
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatePending, StateSuccess, true},
		{StatePending, StateFail, true},
		{StatePending, StatePending, false},
		{StateSuccess, StateFail, false},
		{StateFail, StateSuccess, false},
		{StateSuccess, StatePending, false},
		{StatePending, "active", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestBackupRecord_Terminal(t *testing.T) {
	assert.False(t, (&BackupRecord{State: StatePending}).Terminal())
	assert.True(t, (&BackupRecord{State: StateSuccess}).Terminal())
	assert.True(t, (&BackupRecord{State: StateFail}).Terminal())
}
