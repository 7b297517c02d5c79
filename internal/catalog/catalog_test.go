package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_DefaultsToOther(t *testing.T) {
	t.Parallel()

	c := Default()
	assert.Equal(t, CategoryPowerToolsAccessories, c.Lookup("Drills"))
	assert.Equal(t, CategorySafetyApparel, c.Lookup("Safety Gear"))
	assert.Equal(t, CategoryOther, c.Lookup("Forklift"))
	assert.Equal(t, 10, c.Len())
}

func TestCategory_Family(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryPowerToolsAccessories, "Power Tools"},
		{CategoryPowerToolsEquipment, "Power Tools"},
		{CategorySafetyApparel, "Safety"},
		{CategorySoftwareServices, "Software/Services"},
		{CategoryOther, "Other"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cat.Family())
		})
	}
}

func TestCategory_Overlaps(t *testing.T) {
	t.Parallel()

	assert.True(t, CategoryPowerToolsEquipment.Overlaps(CategoryPowerToolsAccessories))
	assert.True(t, CategoryOther.Overlaps(CategoryOther))
	assert.False(t, CategorySafetyApparel.Overlaps(CategoryPowerToolsAccessories))
	assert.False(t, CategoryOther.Overlaps(CategorySoftwareServices))
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	t.Parallel()

	c := Default()
	got := c.Categories([]string{"Drills", "Safety Gear", "Drill Bits", "Mystery"})
	assert.Equal(t, []Category{CategoryPowerToolsAccessories, CategorySafetyApparel, CategoryOther}, got)
}

func TestMatchesAny(t *testing.T) {
	t.Parallel()

	owned := []Category{CategoryPowerToolsAccessories}
	assert.True(t, MatchesAny(CategoryPowerToolsEquipment, owned))
	assert.False(t, MatchesAny(CategorySafetyApparel, owned))
	assert.False(t, MatchesAny(CategoryOther, nil))
}

func TestProducts_Sorted(t *testing.T) {
	t.Parallel()

	c := New(map[string]Category{"Drills": CategoryPowerToolsAccessories, "Api": CategorySoftwareServices})
	assert.Equal(t, []string{"Api", "Drills"}, c.Products())
}

func TestNew_CopiesInput(t *testing.T) {
	t.Parallel()

	in := map[string]Category{"Widgets": "Hardware"}
	c := New(in)
	in["Widgets"] = "Changed"
	assert.Equal(t, Category("Hardware"), c.Lookup("Widgets"))
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`catalog:
  products:
    Drills: Power Tools & Accessories
    Ladders: Site Equipment
    " Tarps ": ""
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CategoryPowerToolsAccessories, c.Lookup("Drills"))
	assert.Equal(t, Category("Site Equipment"), c.Lookup("Ladders"))
	assert.Equal(t, CategoryOther, c.Lookup("Tarps"))
	assert.Equal(t, CategoryOther, c.Lookup("Generators"))
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("catalog: {}\n"), 0o600))
	_, err = LoadFile(empty)
	assert.ErrorContains(t, err, "defines no products")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("catalog: [\n"), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}
