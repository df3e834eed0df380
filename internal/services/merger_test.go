package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestMergeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023_T1", "usu_hogar_T123.txt"), "A;B\r\n1;2\r\n\r\n3;4")
	writeFile(t, filepath.Join(root, "2023_T2", "usu_hogar_T223.txt"), "\ufeffA;B\n5;6\n")
	writeFile(t, filepath.Join(root, "2023_T2", "usu_individual_T223.txt"), "C\n9\n")
	writeFile(t, filepath.Join(root, "readme.txt"), "ignored")

	dest := filepath.Join(t.TempDir(), "fusion", "hogares.csv")
	var seen []string
	stats, err := MergeFiles("usu_hogar_", root, dest, func(path string, rows int) {
		seen = append(seen, filepath.Base(path))
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "A;B\n1;2\n3;4\n5;6\n", string(data))
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, "A;B", stats.Header)
	assert.Equal(t, []string{"usu_hogar_T123.txt", "usu_hogar_T223.txt"}, seen)
}

func TestMergeFiles_RowCountIsSumOfInputs(t *testing.T) {
	root := t.TempDir()
	want := 0
	for i, dir := range []string{"2022_T4", "2023_T1", "2023_T3"} {
		var b strings.Builder
		b.WriteString("CODUSU;ANO4\n")
		for j := 0; j <= i*2; j++ {
			b.WriteString("X;2023\n")
			want++
		}
		writeFile(t, filepath.Join(root, dir, "usu_individual_"+dir+".txt"), b.String())
	}

	dest := filepath.Join(t.TempDir(), "out.csv")
	stats, err := MergeFiles("usu_individual_", root, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, want, stats.Rows)

	merged, err := ReadTable(dest)
	require.NoError(t, err)
	assert.Len(t, merged.Rows, want)
	assert.Equal(t, []string{"CODUSU", "ANO4"}, merged.Header)
}

func TestMergeFiles_NoInputFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "2023_T1"), 0755))
	dest := filepath.Join(t.TempDir(), "out.csv")

	_, err := MergeFiles("usu_hogar_", root, dest, nil)
	assert.ErrorIs(t, err, ErrNoInputFiles)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "destination must be left untouched")
}

func TestMergeFiles_MissingRoot(t *testing.T) {
	_, err := MergeFiles("usu_hogar_", filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "out.csv"), nil)
	assert.Error(t, err)
}

func TestMergeFiles_EmptyFileIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023_T1", "usu_hogar_a.txt"), "")
	writeFile(t, filepath.Join(root, "2023_T2", "usu_hogar_b.txt"), "A\n1\n")

	dest := filepath.Join(t.TempDir(), "out.csv")
	stats, err := MergeFiles("usu_hogar_", root, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "A\n1\n", string(data))
}

func TestMissingFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023_T1", "usu_hogar_T123.txt"), "A\n")
	writeFile(t, filepath.Join(root, "2023_T1", "usu_individual_T123.txt"), "A\n")
	writeFile(t, filepath.Join(root, "2023_T2", "usu_hogar_T223.txt"), "A\n")
	require.NoError(t, os.Mkdir(filepath.Join(root, "2023_T3"), 0755))

	missing, err := MissingFiles(root, "usu_hogar_", "usu_individual_")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Missing 'usu_individual_' file in folder 2023_T2.",
		"Missing 'usu_hogar_' file in folder 2023_T3.",
		"Missing 'usu_individual_' file in folder 2023_T3.",
	}, missing)
}

func TestMergeFiles_LeadingBlankLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023_T1", "usu_hogar_a.txt"), "\n  \r\nA;B\n1;2\n")
	writeFile(t, filepath.Join(root, "2023_T2", "usu_hogar_b.txt"), "\n\n")
	writeFile(t, filepath.Join(root, "2023_T3", "usu_hogar_c.txt"), "\nA;B\n3;4\n")

	dest := filepath.Join(t.TempDir(), "out.csv")
	stats, err := MergeFiles("usu_hogar_", root, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, "A;B", stats.Header)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.Rows)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "A;B\n1;2\n3;4\n", string(data))
}
