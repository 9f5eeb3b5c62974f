package main

import (
	"context"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulk-loan-api/internal/inventory"
)

func TestDeriveCommand(t *testing.T) {
	out, err := executeContext(context.Background(), "derive", "--start", "1", "--end", "5", "--missing", "2,4", "--duplicates", "3.1")
	require.NoError(t, err)
	assert.Equal(t, "total: 4\n1, 3, 3.1, 5\n", out)
}

func TestDeriveCommandJSON(t *testing.T) {
	out, err := executeContext(context.Background(), "derive", "--start", "7", "--end", "8", "--json")
	require.NoError(t, err)

	var res inventory.Result
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"7", "8"}, res.Books)
	assert.Equal(t, 2, res.Total)
}

func TestDeriveCommandRejectsInvalidRange(t *testing.T) {
	_, err := executeContext(context.Background(), "derive", "--start", "9", "--end", "1")
	assert.ErrorIs(t, err, inventory.ErrInvalidRange)

	_, err = executeContext(context.Background(), "derive", "--start", "1", "--end", "100", "--max-range", "10")
	assert.ErrorIs(t, err, inventory.ErrRangeTooLarge)
}

func TestExportCommandRejectsUnknownFormat(t *testing.T) {
	_, err := executeContext(context.Background(), "export", "--format", "xlsx")
	assert.Error(t, err)
}
