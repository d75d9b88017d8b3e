package email

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/file"
)

func datasetEmail() *Email {
	return &Email{
		UID:     9,
		Subject: "Flight Dataset",
		Attachments: []*Attachment{
			{Filename: "JAN_2020_ONTIME.csv", Content: []byte("ORIGIN,DEST\nABE,ATL\n")},
			{Filename: "notes.txt", Content: []byte("ignore me")},
			{Filename: "other.csv", Content: []byte("A\n1\n")},
		},
	}
}

func TestHandleSavesMatchingSources(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "datasets")
	h := NewAttachmentHandler("flight dataset", dir, nil,
		SourceFile{Name: "Jan_2020_ontime.csv", Columns: []string{"ORIGIN", "DEST"}})

	saved, err := h.Handle(datasetEmail())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "Jan_2020_ontime.csv")}, saved)
	assert.True(t, h.IsProcessed(9))

	data, err := os.ReadFile(saved[0])
	require.NoError(t, err)
	assert.Equal(t, "ORIGIN,DEST\nABE,ATL\n", string(data))

	// 已处理的邮件不再保存
	saved, err = h.Handle(datasetEmail())
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestHandleWithoutSourcesSavesAllTables(t *testing.T) {
	dir := t.TempDir()
	h := NewAttachmentHandler("flight dataset", dir, nil)

	saved, err := h.Handle(datasetEmail())
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.FileExists(t, filepath.Join(dir, "other.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestHandleSkipsOtherSubjects(t *testing.T) {
	h := NewAttachmentHandler("flight dataset", t.TempDir(), nil)
	e := datasetEmail()
	e.Subject = "lunch"

	saved, err := h.Handle(e)
	require.NoError(t, err)
	assert.Empty(t, saved)
	assert.False(t, h.IsProcessed(e.UID))

	saved, err = h.Handle(nil)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestHandleRejectsInvalidSource(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Jan_2020_ontime.csv")
	require.NoError(t, os.WriteFile(target, []byte("ORIGIN,DEST,DEP_TIME\nABE,ATL,915\n"), 0644))

	h := NewAttachmentHandler("flight dataset", dir, nil,
		SourceFile{Name: "Jan_2020_ontime.csv", Columns: []string{"ORIGIN", "DEST", "DEP_TIME"}})

	_, err := h.Handle(datasetEmail())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEP_TIME")
	assert.False(t, h.IsProcessed(9))

	// 原有文件保持不变
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEP_TIME")
}

func TestAttachmentValidate(t *testing.T) {
	a := &Attachment{Filename: "s.csv", Content: []byte("ORIGIN_AIRPORT,FL_DATE\nABE,1/1/20\n")}
	assert.NoError(t, a.Validate(file.ReadOptions{}, "ORIGIN_AIRPORT", "FL_DATE"))
	assert.Error(t, a.Validate(file.ReadOptions{}, "DEST_AIRPORT"))

	empty := &Attachment{Filename: "e.csv", Content: []byte("ORIGIN\n")}
	assert.Error(t, empty.Validate(file.ReadOptions{}))

	broken := &Attachment{Filename: "b.xlsx", Content: []byte("not a zip")}
	_, err := broken.Frame(file.ReadOptions{})
	assert.Error(t, err)
}

func TestHandleLeavesSourcePairOnFailure(t *testing.T) {
	dir := t.TempDir()
	ontime := filepath.Join(dir, "ontime.csv")
	airline := filepath.Join(dir, "airline.csv")
	require.NoError(t, os.WriteFile(ontime, []byte("ORIGIN,DEST\nOLD,OLD\n"), 0644))
	require.NoError(t, os.WriteFile(airline, []byte("AIRLINE_ID,AIRLINE\n1,Old Air\n"), 0644))

	h := NewAttachmentHandler("flight dataset", dir, nil,
		SourceFile{Name: "ontime.csv", Columns: []string{"ORIGIN", "DEST"}},
		SourceFile{Name: "airline.csv", Columns: []string{"AIRLINE_ID", "AIRLINE"}})

	e := &Email{
		UID:     11,
		Subject: "flight dataset",
		Attachments: []*Attachment{
			{Filename: "ontime.csv", Content: []byte("ORIGIN,DEST\nABE,ATL\n")},
			{Filename: "airline.csv", Content: []byte("AIRLINE_ID\n1\n")},
		},
	}
	saved, err := h.Handle(e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AIRLINE")
	assert.Empty(t, saved)
	assert.False(t, h.IsProcessed(11))

	data, err := os.ReadFile(ontime)
	require.NoError(t, err)
	assert.Equal(t, "ORIGIN,DEST\nOLD,OLD\n", string(data))

	// 缺少第二个数据源时同样不写入
	e.UID = 12
	e.Attachments = e.Attachments[:1]
	_, err = h.Handle(e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "airline.csv")

	data, err = os.ReadFile(ontime)
	require.NoError(t, err)
	assert.Equal(t, "ORIGIN,DEST\nOLD,OLD\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "没有残留的临时文件")
}

func TestHandleReplacesSourcePair(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ontime.csv"), []byte("ORIGIN,DEST\nOLD,OLD\n"), 0644))

	h := NewAttachmentHandler("flight dataset", dir, nil,
		SourceFile{Name: "ontime.csv", Columns: []string{"ORIGIN"}},
		SourceFile{Name: "airline.csv", Columns: []string{"AIRLINE_ID"}})
	saved, err := h.Handle(&Email{
		UID:     13,
		Subject: "Flight Dataset",
		Attachments: []*Attachment{
			{Filename: "AIRLINE.CSV", Content: []byte("AIRLINE_ID\n1\n")},
			{Filename: "ONTIME.csv", Content: []byte("ORIGIN,DEST\nABE,ATL\n")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "airline.csv"), filepath.Join(dir, "ontime.csv")}, saved)

	data, err := os.ReadFile(filepath.Join(dir, "ontime.csv"))
	require.NoError(t, err)
	assert.Equal(t, "ORIGIN,DEST\nABE,ATL\n", string(data))

	info, err := os.Stat(filepath.Join(dir, "airline.csv"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestHandlerQuery(t *testing.T) {
	h := NewAttachmentHandler("flight dataset", t.TempDir(), nil,
		SourceFile{Name: "ontime.csv"}, SourceFile{Name: "airline.csv"})
	q := h.Query()
	assert.Equal(t, "flight dataset", q.Subject)
	assert.Equal(t, []string{"ontime.csv", "airline.csv"}, q.Attachments)

	assert.True(t, q.wants("ONTIME.CSV"))
	assert.False(t, q.wants("other.csv"))
	assert.True(t, MailQuery{}.wants("other.xlsx"))
	assert.False(t, MailQuery{}.wants("notes.txt"))
}
