package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mehedi-exx/Hr/internal/domain"
)

func TestEmployeeRoster(t *testing.T) {
	joined := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	data, err := EmployeeRoster([]*domain.Employee{
		{Code: "E100", FirstName: "Ann", Department: "Eng", JoinDate: &joined, Salary: decimal.NewNullDecimal(decimal.RequireFromString("1200.50"))},
		{Code: "E101", FirstName: "Bob", LastName: "Lee"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{rosterSheet}, f.GetSheetList())
	rows, err := f.GetRows(rosterSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, RosterHeader, rows[0])
	assert.Equal(t, "E100", rows[1][0])
	assert.Equal(t, "Eng", rows[1][4])
	assert.Equal(t, "2024-01-15", rows[1][7])
	assert.Equal(t, "1200.5", rows[1][8])
	assert.Equal(t, "Lee", rows[2][2])
}

func TestEmployeeRoster_Empty(t *testing.T) {
	data, err := EmployeeRoster(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(rosterSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRosterFilename(t *testing.T) {
	assert.Equal(t, "ACME_0A1B2C_employees.xlsx", RosterFilename(&domain.Tenant{Code: "ACME_0A1B2C"}))
}
