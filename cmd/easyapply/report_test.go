package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport_SummarizesLedger(t *testing.T) {
	rows := "2026-08-01 10:00:00,111,Data Engineer,Acme,true,submitted\n" +
		"2026-08-01 10:05:00,222,Staff Engineer,Initech,false,skipped\n" +
		"2026-08-01 10:09:00,333,Backend Engineer,Acme,true,failed\n"

	path := filepath.Join(t.TempDir(), "applied.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0644))

	var buf bytes.Buffer
	err := writeReport(path, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Total applications: 3")
	assert.Contains(t, out, "Submitted: 1")
	assert.Contains(t, out, "- Acme: 2")
}

func TestWriteReport_MissingLedger(t *testing.T) {
	var buf bytes.Buffer
	err := writeReport(filepath.Join(t.TempDir(), "nope.csv"), &buf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ledger not found")
}
