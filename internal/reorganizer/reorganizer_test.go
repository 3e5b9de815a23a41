package reorganizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/creative-sorter/pkg/ads"
	"github.com/ilkoid/creative-sorter/pkg/budget"
	"github.com/ilkoid/creative-sorter/pkg/config"
	"github.com/ilkoid/creative-sorter/pkg/s3storage"
	"github.com/ilkoid/creative-sorter/pkg/validator"
	"github.com/ilkoid/creative-sorter/pkg/vision"
	"github.com/ilkoid/creative-sorter/pkg/workbook"
)

// memStorage — хранилище в памяти: содержимое объекта = его ключ.
type memStorage struct {
	objects     []s3storage.StoredObject
	listErr     error
	failOn      map[string]bool // ключи, скачивание которых падает
	partialOn   map[string]bool // ключи, скачивание которых падает после записи части файла
	uploadErr   error
	folders     []string
	uploads     map[string]string // ключ → локальный путь
	uploadBytes map[string][]byte
}

func newMemStorage(keys ...string) *memStorage {
	m := &memStorage{
		failOn:      map[string]bool{},
		partialOn:   map[string]bool{},
		uploads:     map[string]string{},
		uploadBytes: map[string][]byte{},
	}
	for _, k := range keys {
		m.objects = append(m.objects, s3storage.StoredObject{Key: k, Size: int64(len(k))})
	}
	return m
}

func (m *memStorage) ListFiles(_ context.Context, _ string) ([]s3storage.StoredObject, error) {
	return m.objects, m.listErr
}

func (m *memStorage) DownloadToFile(_ context.Context, key, localPath string) error {
	if m.failOn[key] {
		return errors.New("connection reset")
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	if m.partialOn[key] {
		if err := os.WriteFile(localPath, []byte(key[:len(key)/2]), 0o644); err != nil {
			return err
		}
		return errors.New("unexpected EOF")
	}
	return os.WriteFile(localPath, []byte(key), 0o644)
}

func (m *memStorage) UploadFile(_ context.Context, localPath, key string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.uploads[key] = localPath
	m.uploadBytes[key] = data
	return nil
}

func (m *memStorage) EnsureFolder(_ context.Context, prefix string) error {
	m.folders = append(m.folders, prefix)
	return nil
}

// copyProcessor заменяет обработку изображения копированием.
func copyProcessor(in, out string, _ int) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

// keyedAnalyzer оценивает файл по подстроке в содержимом (= ключе объекта).
func keyedAnalyzer() vision.Analyzer {
	return vision.AnalyzerFunc(func(_ context.Context, image []byte) (string, error) {
		if strings.Contains(string(image), "Blurry") {
			return `{"quality": 2, "privacy": false}`, nil
		}
		return `{"quality": 8, "privacy": true}`, nil
	})
}

const (
	goodFile   = "US-EN | BUY123 | Summer | Youth | Seller | Image | 30s | jpg"
	secondFile = "US-EN | BUY123 | Winter | Youth | Seller | Image | 15s | jpg"
	blurryFile = "US-EN | BUY123 | Blurry | Youth | Seller | Image | 30s | jpg"
	brokenFile = "DE-DE | BUY123 | Autumn | Family | Buyer | Image | 10s | png"
)

func testWorkbook() *workbook.Workbook {
	return workbook.New(map[string][][]string{
		workbook.TabUI: {
			{"level", "field"},
			{"level_1", "concept"},
			{"level_0", "country"},
		},
		workbook.TabAssets: {
			{"filename", "asset_id", "asset_name"},
			{goodFile, "A-1", ""},
			{secondFile, "A-2", ""},
			{blurryFile, "A-3", ""},
		},
		workbook.TabAds: {
			{"ad_id", "asset_id", "budget", "clicks", "impressions", "conversions"},
			{"AD-1", "A-1", "1000", "90", "100", "60"},
			{"AD-1", "A-2", "1000", "1", "100", "0"},
			{"AD-2", "A-3", "500", "10", "100", "1"},
		},
		workbook.TabBuyouts: {
			{"buyout_code", "expiration_date"},
			{"BUY123", "31/12/2099"},
		},
	})
}

func newTestReorganizer(t *testing.T, st *memStorage, src Source, up ads.BudgetUpdater) *Reorganizer {
	t.Helper()
	dir := t.TempDir()
	v := validator.New(keyedAnalyzer(), up)
	b := budget.New(up, config.BudgetConfig{})
	return New(st, src, v, b, Options{
		SourcePrefix: "incoming",
		TargetPrefix: "sorted",
		WorkDir:      filepath.Join(dir, "work"),
		ReportsDir:   filepath.Join(dir, "reports"),
	}).WithImageProcessor(copyProcessor)
}

func TestRun_FullPipeline(t *testing.T) {
	st := newMemStorage(
		"incoming/"+goodFile,
		"incoming/"+secondFile,
		"incoming/"+blurryFile,
		"incoming/not-a-creative.png",
	)
	up := ads.NewSimulator()
	r := newTestReorganizer(t, st, testWorkbook(), up)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Listed)
	assert.Equal(t, []string{"incoming/not-a-creative.png"}, res.Skipped)
	assert.Len(t, res.Processed, 3)

	// Уровни отсортированы по позиции: country, затем concept
	assert.ElementsMatch(t, []string{
		"sorted/US/Summer/" + goodFile,
		"sorted/US/Winter/" + secondFile,
	}, res.Uploaded)
	assert.Equal(t, []byte("incoming/"+goodFile), st.uploadBytes["sorted/US/Summer/"+goodFile])
	assert.Contains(t, st.folders, "sorted/US")
	assert.Contains(t, st.folders, "sorted/US/Summer")

	assert.Equal(t, 3, res.Validation.TotalAssets)
	assert.Equal(t, 2, res.Validation.ValidAssets)
	assert.Equal(t, 1, res.Validation.InvalidAssets)

	// Бюджеты только у валидных: AD-1 с двумя креативами → один вверх, один вниз
	require.NotNil(t, res.Budget)
	assert.Equal(t, 2, res.Budget.TotalAssets)
	assert.Equal(t, 1, res.Budget.Increased)
	assert.Equal(t, 1, res.Budget.Decreased)
	b, ok := up.Budget("AD-1", "A-1")
	assert.True(t, ok)
	assert.Equal(t, 1200, b)
	b, ok = up.Budget("AD-1", "A-2")
	assert.True(t, ok)
	assert.Equal(t, 800, b)
	_, ok = up.Budget("AD-2", "A-3")
	assert.False(t, ok)

	assert.FileExists(t, filepath.Join(res.ReportsDir, validator.ReportJSONFile))
	assert.FileExists(t, filepath.Join(res.ReportsDir, validator.InvalidAssetsFile))
	assert.FileExists(t, filepath.Join(res.ReportsDir, budget.ChangesJSONFile))
	assert.Equal(t, filepath.Join(res.ReportsDir, budget.ReportTextFile), res.BudgetFile)

	// Временные файлы удалены
	entries, err := os.ReadDir(filepath.Join(r.opts.WorkDir, "assets"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_NoHierarchyAbstains(t *testing.T) {
	st := newMemStorage("incoming/" + goodFile)
	src := workbook.New(map[string][][]string{workbook.TabUI: {{"level", "field"}}})
	r := newTestReorganizer(t, st, src, ads.NewSimulator())

	res, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoHierarchy)
	require.NotNil(t, res)
	assert.Empty(t, res.Processed)
	assert.Empty(t, st.uploads)
	assert.NoDirExists(t, res.ReportsDir)
}

func TestRun_FileFailureIsIsolated(t *testing.T) {
	st := newMemStorage("incoming/"+brokenFile, "incoming/"+goodFile)
	st.failOn["incoming/"+brokenFile] = true
	r := newTestReorganizer(t, st, testWorkbook(), ads.NewSimulator())

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Processed, 1)
	assert.Len(t, res.Uploaded, 1)
	assert.Equal(t, 1, res.Validation.Errors)
	assert.Equal(t, brokenFile, res.Validation.ErrorDetails[0].Filename)
	assert.Contains(t, res.Validation.ErrorDetails[0].Error, "download")
	assert.FileExists(t, filepath.Join(res.ReportsDir, validator.ErrorReportFile))
}

func TestRun_UploadFailureKeepsValidatedAssetForBudgets(t *testing.T) {
	st := newMemStorage("incoming/"+goodFile, "incoming/"+secondFile)
	st.uploadErr = errors.New("slow down")
	up := ads.NewSimulator()
	r := newTestReorganizer(t, st, testWorkbook(), up)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Processed, 2)
	assert.Empty(t, res.Uploaded)
	assert.Equal(t, 2, res.Validation.ValidAssets)
	assert.Equal(t, 2, res.Validation.TotalAssets)
	assert.Equal(t, 2, res.Validation.Errors)
	assert.Contains(t, res.Validation.ErrorDetails[0].Error, "upload")

	require.NotNil(t, res.Budget)
	assert.Equal(t, 1, res.Budget.Increased)
	assert.Equal(t, 1, res.Budget.Decreased)
	b, ok := up.Budget("AD-1", "A-1")
	assert.True(t, ok)
	assert.Equal(t, 1200, b)
}

func TestRun_PartialDownloadIsCleanedUp(t *testing.T) {
	st := newMemStorage("incoming/" + brokenFile)
	st.partialOn["incoming/"+brokenFile] = true
	r := newTestReorganizer(t, st, testWorkbook(), ads.NewSimulator())

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Validation.Errors)
	assert.Empty(t, res.Processed)

	entries, err := os.ReadDir(filepath.Join(r.opts.WorkDir, "assets"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_ListError(t *testing.T) {
	st := newMemStorage()
	st.listErr = errors.New("access denied")
	r := newTestReorganizer(t, st, testWorkbook(), ads.NewSimulator())

	_, err := r.Run(context.Background())
	assert.Error(t, err)
}

func TestRun_CancelledContextStopsLoop(t *testing.T) {
	st := newMemStorage("incoming/" + goodFile)
	r := newTestReorganizer(t, st, testWorkbook(), ads.NewSimulator())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Processed)
	assert.Nil(t, res.Budget)
}

func TestRun_ExpiredBuyoutStillZeroesBudget(t *testing.T) {
	wb := testWorkbook()
	wb.Tabs[workbook.TabBuyouts] = [][]string{{"buyout_code", "expiration_date"}, {"BUY123", "01/01/2020"}}
	st := newMemStorage("incoming/" + goodFile)
	up := ads.NewSimulator()
	r := newTestReorganizer(t, st, wb, up)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Processed, 1)
	a := res.Processed[0]
	assert.False(t, a.IsBuyoutValid)
	assert.True(t, a.IsValid(), "quality above threshold compensates the buyout")

	// Сначала выставлен 0, затем одиночный креатив с высоким score умножен на 1.2 от нуля
	assert.Equal(t, 0, a.Budget)
	b, ok := up.Budget("AD-1", "A-1")
	assert.True(t, ok)
	assert.Equal(t, 0, b)
}

var _ Source = (*workbook.Workbook)(nil)
