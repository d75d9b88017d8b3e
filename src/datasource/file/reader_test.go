package file

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const sampleCSV = `ORIGIN,DEST,DEP_TIME
"ABE",ATL,0915
ATL,ORD,1539.0
`

func TestReadCSVKeepsStrings(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(sampleCSV), "utf-8")
	require.NoError(t, err)

	assert.Equal(t, []string{"ORIGIN", "DEST", "DEP_TIME"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, series.String, df.Col("DEP_TIME").Type())
	assert.Equal(t, []string{"0915", "1539.0"}, df.Col("DEP_TIME").Records())
}

func TestReadCSVCharset(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("机场,城市\nPEK,北京\n")
	require.NoError(t, err)

	df, err := ReadCSV(strings.NewReader(encoded), "gbk")
	require.NoError(t, err)
	assert.Equal(t, []string{"机场", "城市"}, df.Names())
	assert.Equal(t, "北京", df.Col("城市").Records()[0])

	_, err = ReadCSV(strings.NewReader(sampleCSV), "ebcdic")
	require.Error(t, err)
}

func TestReadSourceCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flights.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	df, err := ReadSource(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())

	_, err = ReadSource(filepath.Join(t.TempDir(), "missing.csv"), ReadOptions{})
	require.Error(t, err)

	_, err = ReadSource("flights.parquet", ReadOptions{})
	require.Error(t, err)
}

func TestExcelRoundTrip(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"ABE", "ATL"}, series.String, "ORIGIN"),
		series.New([]float64{1.5, math.NaN()}, series.Float, "DEP_DELAY"),
	)
	path := filepath.Join(t.TempDir(), "out", "result.xlsx")

	require.NoError(t, SaveToExcel(path, NamedFrame{Sheet: "Delays", Frame: df}))

	back, err := ReadSource(path, ReadOptions{SheetName: "Delays"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ORIGIN", "DEP_DELAY"}, back.Names())
	assert.Equal(t, []string{"ABE", "ATL"}, back.Col("ORIGIN").Records())
	assert.Equal(t, "", back.Col("DEP_DELAY").Records()[1])

	_, err = ReadSource(path, ReadOptions{SheetName: "Nope"})
	require.Error(t, err)
}

func TestSaveToExcelMultipleSheets(t *testing.T) {
	a := dataframe.New(series.New([]int{1, 2}, series.Int, "WEEK"))
	b := dataframe.New(series.New([]string{"Morning"}, series.String, "DEP_TIME_BLK"))
	path := filepath.Join(t.TempDir(), "story.xlsx")

	require.NoError(t, SaveToExcel(path, NamedFrame{Sheet: "Week", Frame: a}, NamedFrame{Sheet: "Block", Frame: b}))

	back, err := ReadSource(path, ReadOptions{SheetName: "Block"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Morning"}, back.Col("DEP_TIME_BLK").Records())

	require.Error(t, SaveToExcel(path))
}

func TestExportCSV(t *testing.T) {
	df := dataframe.New(series.New([]string{"On-time", "Delayed"}, series.String, "STATUS"))
	path := filepath.Join(t.TempDir(), "status.csv")

	require.NoError(t, Export(df, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "STATUS\nOn-time\nDelayed\n", string(data))

	require.Error(t, Export(df, filepath.Join(t.TempDir(), "status.json")))
}

func TestFileMonitorDetectsWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "queries.yaml")
	require.NoError(t, os.WriteFile(target, []byte("a: 1\n"), 0644))

	monitor, err := NewFileMonitor(target)
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	go func() {
		_ = monitor.Watch(ctx, func(name string) { changed <- name })
	}()

	// 其他文件的变化不应触发
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(target, []byte("a: 2\n"), 0644))

	select {
	case name := <-changed:
		assert.Equal(t, target, name)
	case <-time.After(3 * time.Second):
		t.Fatal("no change event received")
	}
}
