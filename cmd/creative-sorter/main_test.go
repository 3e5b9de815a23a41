package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/creative-sorter/internal/reorganizer"
	"github.com/ilkoid/creative-sorter/pkg/budget"
	"github.com/ilkoid/creative-sorter/pkg/validator"
)

const testWorkbook = `tabs:
  UI:
    - [level, field]
    - [level_0, country]
    - [level_1, audience]
  uac_assets_data:
    - [filename, asset_id, asset_name]
  uac_ads_data:
    - [ad_id, asset_id, asset_name, adgroup_name, account_name, budget, clicks, impressions, conversions]
  buyouts_to_date:
    - [buyout_code, expiration_date]
    - [BUY123, 31/12/2099]
`

func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	wbPath := filepath.Join(dir, "workbook.yaml")
	require.NoError(t, os.WriteFile(wbPath, []byte(testWorkbook), 0o644))

	cfg := `models:
  default_vision: demo
  definitions:
    demo:
      provider: openai
      model_name: gpt-4o-mini
      api_key: demo_key
s3:
  endpoint: localhost:9000
  bucket: creatives
  source_prefix: incoming
  target_prefix: sorted
ads:
  api_key: demo_key
workbook:
  path: ` + wbPath + `
app:
  tmp_dir: ` + filepath.Join(dir, "tmp") + `
`
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := execute(t, "parse", "--levels", "country,audience",
		"US-EN | BUY123 | Summer | Youth | Seller | Image | 30s | jpg",
		"holiday.png",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "BUY123")
	assert.Contains(t, out, "Seller")
	assert.Contains(t, out, "US/Youth/US-EN | BUY123 | Summer | Youth | Seller | Image | 30s | jpg")
	assert.Contains(t, out, "Not a creative name")
	assert.Contains(t, out, "holiday.png")
}

func TestParseCommand_RequiresArgument(t *testing.T) {
	_, err := execute(t, "parse")
	assert.Error(t, err)
}

func TestLevelsFromFlag(t *testing.T) {
	s := levelsFromFlag(" country, ,audience")
	assert.Equal(t, []string{"country", "audience"}, s.FieldNames())

	assert.Empty(t, levelsFromFlag("").Levels)
}

func TestCheckConfigCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "check-config", "-c", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "creatives")
	assert.Contains(t, out, "[simulated]")
	assert.Contains(t, out, "country / audience")
	assert.Contains(t, out, "(single run)")
}

func TestCheckConfigCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "check-config", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestAcquireRunLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "run.lock")

	unlock, err := acquireRunLock(path)
	require.NoError(t, err)

	_, err = acquireRunLock(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another run holds the lock")

	unlock()

	unlock, err = acquireRunLock(path)
	require.NoError(t, err)
	unlock()
}

func TestRunScheduled_InvalidSchedule(t *testing.T) {
	var out bytes.Buffer
	err := runScheduled(context.Background(), &out, "not a cron", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestRunScheduled_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- runScheduled(ctx, &out, "*/1 * * * * *", func(context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Contains(t, out.String(), "Scheduler started")
}

func TestRenderRunSummary(t *testing.T) {
	res := &reorganizer.Result{
		RunID:     "run-1",
		StartedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local),
		Listed:    3,
		Skipped:   []string{"junk.png"},
		Validation: validator.Summary{
			TotalAssets:   2,
			ValidAssets:   1,
			InvalidAssets: 1,
			InvalidDetails: []validator.InvalidEntry{
				{Filename: "bad.png", Reasons: []string{"Invalid naming convention"}},
			},
		},
		Budget: &budget.Summary{
			TotalAds:  1,
			Increased: 1,
			Ledger: budget.Ledger{
				Changes: []budget.Change{{
					Filename:       "good.png",
					AdID:           "AD-1",
					PreviousBudget: 1000,
					NewBudget:      1200,
					Reason:         "Top performer - budget increased by 20%",
				}},
			},
		},
		BudgetFile: "reports/budget_report.txt",
	}

	out := renderRunSummary(res)

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "bad.png")
	assert.Contains(t, out, "Invalid naming convention")
	assert.Contains(t, out, "1200")
	assert.Contains(t, out, "budget_report.txt")
	assert.False(t, strings.Contains(out, "Errors\n"), "no error table without errors")
}

func TestRenderTable_PadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "only")
	assert.Empty(t, renderTable(nil, nil, nil))
}
