package mapper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brucargo/qmsync/internal/syncerr"
)

func testTable() *Table {
	return &Table{
		Classes: map[string]ClassMapping{
			"Pu": {
				ClassStructureID: "PUMP",
				HierarchyPath:    `FACILITIES \ PUMPS`,
				Attributes: map[string]AttributeMapping{
					"FLOWRATE": {Property: "FlowRate", Type: "Real"},
					"STAGES":   {Property: "StageCount", Type: "Integer"},
					"VARSPEED": {Property: "VariableSpeed", Type: "Boolean"},
					"INSTDATE": {Property: "InstallationDate", Type: "Time"},
					"MEDIUM":   {Property: "Medium", Type: "String", Domain: []string{"Water", "Glycol"}},
				},
			},
		},
	}
}

func TestMapper_MapKnownCode(t *testing.T) {
	m := New(testTable(), "BRU-ORG", zap.NewNop())

	mapped, err := m.Map("Pu", map[string]string{
		"FlowRate":         "12.5",
		"StageCount":       "3.0",
		"VariableSpeed":    "true",
		"InstallationDate": "2024-03-01",
		"Medium":           "Water",
	})
	require.NoError(t, err)
	assert.Equal(t, "PUMP", mapped.ClassStructureID)
	assert.Equal(t, `FACILITIES \ PUMPS`, mapped.HierarchyPath)
	require.Len(t, mapped.Rows, 5)

	byAttr := make(map[string]int)
	for i, row := range mapped.Rows {
		byAttr[row.AssetAttrID] = i
		assert.Equal(t, "BRU-ORG", row.OrgID)
		assert.Equal(t, "PUMP", row.ClassStructureID)
	}

	flow := mapped.Rows[byAttr["FLOWRATE"]]
	require.NotNil(t, flow.NumValue)
	assert.Equal(t, 12.5, *flow.NumValue)

	stages := mapped.Rows[byAttr["STAGES"]]
	require.NotNil(t, stages.NumValue)
	assert.Equal(t, 3.0, *stages.NumValue)

	varspeed := mapped.Rows[byAttr["VARSPEED"]]
	require.NotNil(t, varspeed.AlnValue)
	assert.Equal(t, "Yes", *varspeed.AlnValue)

	instdate := mapped.Rows[byAttr["INSTDATE"]]
	require.NotNil(t, instdate.DateValue)
	assert.Equal(t, "2024-03-01T00:00:00Z", *instdate.DateValue)

	medium := mapped.Rows[byAttr["MEDIUM"]]
	require.NotNil(t, medium.AlnValue)
	assert.Equal(t, "Water", *medium.AlnValue)
}

func TestMapper_UnmappedCode(t *testing.T) {
	m := New(testTable(), "BRU-ORG", zap.NewNop())

	_, err := m.Map("ZZ", nil)
	assert.ErrorIs(t, err, syncerr.ErrUnmappedClassification)
}

func TestMapper_DefaultFallback(t *testing.T) {
	table := testTable()
	table.Default = &ClassMapping{
		ClassStructureID: "GENERIC",
		HierarchyPath:    `FACILITIES \ GENERIC`,
	}
	m := New(table, "BRU-ORG", zap.NewNop())

	mapped, err := m.Map("ZZ", nil)
	require.NoError(t, err)
	assert.Equal(t, "GENERIC", mapped.ClassStructureID)
	assert.Empty(t, mapped.Rows)
}

func TestMapper_MissingPropertySkipsRow(t *testing.T) {
	m := New(testTable(), "BRU-ORG", zap.NewNop())

	mapped, err := m.Map("Pu", map[string]string{"FlowRate": "7"})
	require.NoError(t, err)
	require.Len(t, mapped.Rows, 1)
	assert.Equal(t, "FLOWRATE", mapped.Rows[0].AssetAttrID)
}

func TestMapper_IntegerTruncatesFraction(t *testing.T) {
	m := New(testTable(), "BRU-ORG", zap.NewNop())

	mapped, err := m.Map("Pu", map[string]string{"StageCount": "2.9"})
	require.NoError(t, err)
	require.Len(t, mapped.Rows, 1)
	require.NotNil(t, mapped.Rows[0].NumValue)
	assert.Equal(t, 2.0, *mapped.Rows[0].NumValue)
}

func TestMapper_BooleanFalseVariants(t *testing.T) {
	m := New(testTable(), "BRU-ORG", zap.NewNop())

	for _, raw := range []string{"false", "no", "0", "off"} {
		mapped, err := m.Map("Pu", map[string]string{"VariableSpeed": raw})
		require.NoError(t, err)
		require.Len(t, mapped.Rows, 1)
		require.NotNil(t, mapped.Rows[0].AlnValue)
		assert.Equal(t, "No", *mapped.Rows[0].AlnValue, "raw=%s", raw)
	}
}

func TestMapper_OutOfDomainValueGoesNull(t *testing.T) {
	m := New(testTable(), "BRU-ORG", zap.NewNop())

	mapped, err := m.Map("Pu", map[string]string{"Medium": "Steam"})
	require.NoError(t, err)
	require.Len(t, mapped.Rows, 1)
	// Row is sent so the spec slot exists, but carries no value.
	assert.Nil(t, mapped.Rows[0].AlnValue)
	assert.Nil(t, mapped.Rows[0].NumValue)
	assert.Nil(t, mapped.Rows[0].DateValue)
}

func TestMapper_InvalidNumberGoesNull(t *testing.T) {
	m := New(testTable(), "BRU-ORG", zap.NewNop())

	mapped, err := m.Map("Pu", map[string]string{"FlowRate": "fast"})
	require.NoError(t, err)
	require.Len(t, mapped.Rows, 1)
	assert.Nil(t, mapped.Rows[0].NumValue)
}

func TestMapper_TimeAcceptsRFC3339(t *testing.T) {
	m := New(testTable(), "BRU-ORG", zap.NewNop())

	mapped, err := m.Map("Pu", map[string]string{"InstallationDate": "2024-03-01T10:30:00Z"})
	require.NoError(t, err)
	require.Len(t, mapped.Rows, 1)
	require.NotNil(t, mapped.Rows[0].DateValue)
	assert.Equal(t, "2024-03-01T10:30:00Z", *mapped.Rows[0].DateValue)
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	content := `
classes:
  Pu:
    class_structure_id: PUMP
    hierarchy_path: 'FACILITIES \ PUMPS'
    attributes:
      FLOWRATE:
        property: FlowRate
        type: Real
default:
  class_structure_id: GENERIC
  hierarchy_path: 'FACILITIES \ GENERIC'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.True(t, table.Has("Pu"))
	assert.True(t, table.Has("ZZ")) // default catches unknown codes
	assert.Equal(t, []string{"Pu"}, table.Codes())
	assert.Equal(t, "PUMP", table.Classes["Pu"].ClassStructureID)
	assert.Equal(t, "FlowRate", table.Classes["Pu"].Attributes["FLOWRATE"].Property)
}

func TestLoadTable_EmptyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes: {}\n"), 0644))

	_, err := LoadTable(path)
	assert.Error(t, err)
}

func TestLoadTable_MissingFileFails(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
