package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	t := Table{Title: "Books", Columns: []string{"barcode", "title", "author"}}
	t.Append("FI2020ABCDEF11", "Laskar Pelangi", "Andrea Hirata")
	t.Append("RE2019A1B2C301", "Atlas, \"Indonesia\"")
	return t
}

func TestCSVRenderer(t *testing.T) {
	out, err := CSVRenderer{}.Render(sampleTable())
	require.NoError(t, err)
	assert.Equal(t,
		"barcode,title,author\nFI2020ABCDEF11,Laskar Pelangi,Andrea Hirata\nRE2019A1B2C301,\"Atlas, \"\"Indonesia\"\"\",\n",
		string(out))
}

func TestRenderersRequireColumns(t *testing.T) {
	_, err := CSVRenderer{}.Render(Table{})
	assert.Error(t, err)
	_, err = PDFRenderer{}.Render(Table{})
	assert.Error(t, err)
}

func TestPDFRendererPaginates(t *testing.T) {
	table := sampleTable()
	for i := 0; i < 80; i++ {
		table.Append("X", "row", "author")
	}
	out, err := PDFRenderer{}.Render(table)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRendererFor(t *testing.T) {
	r, err := RendererFor("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", r.ContentType())

	r, err = RendererFor("csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", r.Extension())

	_, err = RendererFor("xlsx")
	assert.Error(t, err)
}

func TestLabelRenderer(t *testing.T) {
	out, err := NewLabelRenderer().Render(Label{
		Barcode: "FI2020ABCDEF11",
		Title:   "A very long title that certainly will not fit on a small sticker label",
		Author:  "Andrea Hirata",
		Caption: "SMA Negeri 1",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewLabelRenderer().Render(Label{Title: "missing"})
	assert.Error(t, err)
}
