package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedFixture() *Table {
	return &Table{
		Columns: []string{"ID", "IDADE", "RISCO"},
		Rows: [][]string{
			{"1", "71", "ALTO"},
			{"2", "65", "BAIXO"},
			{"3", "80", "ALTO"},
			{"4", "69", "MODERADO"},
			{"5", "74", "TÍPICO"},
		},
	}
}

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"dados.csv":  FormatCSV,
		"dados.CSV":  FormatCSV,
		"dados.xlsx": FormatXLSX,
		"a.b.xlsx":   FormatXLSX,
	}
	for name, want := range cases {
		got, err := Format(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"dados.xls", "dados.json", "dados", "csv", "dados.csv.txt"} {
		_, err := Format(name)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, name)
	}
}

func TestRead_UnsupportedExtensionYieldsNoTable(t *testing.T) {
	tbl, err := Read("pacientes.txt", strings.NewReader("a,b\n1,2\n"))
	assert.Nil(t, tbl)
	require.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.Equal(t, "Formato de arquivo não suportado!", err.Error())
}

func TestRead_CSV(t *testing.T) {
	input := "\xEF\xBB\xBFID, IDADE ,RISCO\n1,71,ALTO\n2,65\n\n3,80,ALTO,extra\n"

	tbl, err := Read("pacientes.csv", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "IDADE", "RISCO"}, tbl.Columns)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"2", "65", ""}, tbl.Rows[1])
	assert.Equal(t, []string{"3", "80", "ALTO"}, tbl.Rows[2])
}

func TestRead_Empty(t *testing.T) {
	_, err := Read("vazio.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Read("vazio.csv", strings.NewReader("\n,,\n"))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestRead_MalformedXLSX(t *testing.T) {
	_, err := Read("quebrado.xlsx", strings.NewReader("not a zip archive"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rankedFixture()))

	tbl, err := Read("ranked.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, rankedFixture(), tbl)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranked.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteXLSX(f, rankedFixture()))
	require.NoError(t, f.Close())

	tbl, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.Len())

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTable_Unique(t *testing.T) {
	tbl := rankedFixture()
	assert.Equal(t, []string{"ALTO", "BAIXO", "MODERADO", "TÍPICO"}, tbl.Unique("RISCO"))
	assert.Nil(t, tbl.Unique("SCORE"))
}

func TestTable_FilterIsExactMatch(t *testing.T) {
	tbl := rankedFixture()
	tbl.Rows = append(tbl.Rows, []string{"6", "90", "alto"}, []string{"7", "91", "ALTO "})

	got := tbl.Filter("RISCO", "ALTO")
	require.Equal(t, 2, got.Len())
	for _, row := range got.Rows {
		assert.Equal(t, "ALTO", row[2])
	}
	assert.Equal(t, tbl.Columns, got.Columns)

	assert.Zero(t, tbl.Filter("RISCO", "INEXISTENTE").Len())
	assert.Zero(t, tbl.Filter("SCORE", "ALTO").Len())
}

func TestTable_CountBy(t *testing.T) {
	counts := rankedFixture().CountBy("RISCO")
	assert.Equal(t, []Count{
		{Value: "ALTO", Count: 2},
		{Value: "BAIXO", Count: 1},
		{Value: "MODERADO", Count: 1},
		{Value: "TÍPICO", Count: 1},
	}, counts)
}
