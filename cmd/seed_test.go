package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-agent/internal/api"
	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/pipeline"
	"github.com/sells-group/opportunity-agent/internal/store"
)

const seedCSV = `Customer ID,Product,Quantity,Unit Price (USD),Total Price (USD),Purchase Date,Customer Name,Industry,Annual Revenue (USD),Number of Employees,Customer Priority Rating,Account Type,Location
C1,Drills,2,150,300,2024-03-01,Acme Builders,Construction,1200000,85,High,Enterprise,"Denver, CO"
C2,Generators,1,900,900,2024-03-02,Peak Roofing,Construction,800000,30,Medium,SMB,"Boise, ID"
`

func writeSeedFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(seedCSV), 0o600))
	return path
}

func setSeedFlags(t *testing.T, file, sqlOut string, reset, skipDB bool) {
	t.Helper()
	seedFile, seedSQLOut, seedReset, seedSkipDB, seedBatchSize = file, sqlOut, reset, skipDB, 1
	t.Cleanup(func() {
		seedFile, seedSQLOut, seedReset, seedSkipDB, seedBatchSize = "", "", false, false, 1000
	})
}

func TestSeedCmd_LoadsSQLite(t *testing.T) {
	c := testConfig(t)
	setConfig(t, c)
	setSeedFlags(t, writeSeedFile(t), "", true, false)

	seedCmd.SetContext(context.Background())
	require.NoError(t, seedCmd.RunE(seedCmd, nil))
	// Re-running with --reset must not duplicate rows.
	require.NoError(t, seedCmd.RunE(seedCmd, nil))

	st, err := store.NewSQLite(c.Store.DatabaseURL)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	rows, err := st.CustomerPurchases(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Drills", rows[0].Product)

	peers, err := st.PeerProducts(context.Background(), "Construction", "C1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Generators"}, peers)
}

func TestSeedCmd_SQLOnly(t *testing.T) {
	c := testConfig(t)
	c.Store.DatabaseURL = ""
	setConfig(t, c)
	out := filepath.Join(t.TempDir(), "init.sql")
	setSeedFlags(t, writeSeedFile(t), out, false, true)

	seedCmd.SetContext(context.Background())
	require.NoError(t, seedCmd.RunE(seedCmd, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "-- init.sql\n"))
	assert.Equal(t, 2, strings.Count(string(data), "INSERT INTO customer_purchases"))
}

func TestSeedCmd_SkipDBRequiresSQL(t *testing.T) {
	setConfig(t, testConfig(t))
	setSeedFlags(t, writeSeedFile(t), "", false, true)

	err := seedCmd.RunE(seedCmd, nil)
	assert.ErrorContains(t, err, "--skip-db requires --sql")
}

func TestMigrateCmd_SQLite(t *testing.T) {
	setConfig(t, testConfig(t))

	migrateCmd.SetContext(context.Background())
	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))
}

func TestWriteRecommendation(t *testing.T) {
	var buf bytes.Buffer
	state := model.NewPipelineState("run", "C404").WithError(model.NotFoundError("customer id not found"))

	require.NoError(t, writeRecommendation(&buf, state))

	var resp api.Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "C404", resp.CustomerID)
	assert.Equal(t, pipeline.PlaceholderReport, resp.ResearchReport)
	assert.Empty(t, resp.Recommendations)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "customer id not found", *resp.Error)
}
