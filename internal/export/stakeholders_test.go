package export

import (
	"bytes"
	"testing"

	"backoffice/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestStakeholders(t *testing.T) {
	bn := "পরিচালক"
	rows := []model.Stakeholder{
		{Type: model.StakeholderTypeNGO, Name: "Karim Uddin", Mobile: "01712345678", Email: "karim@example.org", IsActive: true},
		{Type: model.StakeholderTypeGovernment, Name: "Rahima Khatun", BnDesignation: &bn, Mobile: "01812345678", Email: "rahima@example.gov.bd"},
	}

	data, err := Stakeholders(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(stakeholderSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, stakeholderHeaders, got[0])
	assert.Equal(t, []string{"1", "NGO", "Karim Uddin", "", "", "", "01712345678", "karim@example.org", "Active"}, got[1])
	assert.Equal(t, "পরিচালক", got[2][5])
	assert.Equal(t, "Inactive", got[2][8])
}

func TestStakeholders_Empty(t *testing.T) {
	data, err := Stakeholders(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(stakeholderSheet)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
