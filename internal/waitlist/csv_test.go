package waitlist

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/models"
)

func TestWriteCSV(t *testing.T) {
	joined := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	entries := []models.WaitlistEntry{
		{Position: 1, Email: "a@example.com", UserName: "Ada Lovelace", Status: models.EntryConfirmed, CreatedAt: joined},
		{Position: 2, Email: "b@example.com", Status: models.EntryPending, CreatedAt: joined.Add(time.Minute)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "position,email,name,status,joinedDate", lines[0])
	assert.Equal(t, "1,a@example.com,Ada Lovelace,confirmed,2026-03-14T09:30:00Z", lines[1])
	assert.Equal(t, "2,b@example.com,,pending,2026-03-14T09:31:00Z", lines[2])
}

func TestWriteCSVEscapesSpecialCharacters(t *testing.T) {
	entries := []models.WaitlistEntry{
		{Position: 1, Email: "c@example.com", UserName: `Smith, "Bob"`, Status: models.EntryPending, CreatedAt: time.Unix(0, 0)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	assert.Contains(t, buf.String(), `"Smith, ""Bob"""`)
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "position,email,name,status,joinedDate\n", buf.String())
}
