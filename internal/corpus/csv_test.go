package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

func TestReadCSV_DefaultColumns(t *testing.T) {
	in := "\ufeffid,Câu tiếng Hán,translation,best_match\n" +
		"1,你好,Xin chào,Xin chào\n" +
		"2,,skipped,skipped\n" +
		"3,\"學而時習之, 不亦說乎\",Học mà thường ôn tập,Học rồi luyện tập\n"

	records, err := ReadCSV(strings.NewReader(in), DefaultColumns())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Record{Source: "你好", Translation: "Xin chào", Reference: "Xin chào"}, records[0])
	assert.Equal(t, "學而時習之, 不亦說乎", records[1].Source)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	in := "Câu tiếng Hán,translation\n你好,Xin chào\n"

	_, err := ReadCSV(strings.NewReader(in), DefaultColumns())

	require.Error(t, err)
	assert.Equal(t, hverrors.ErrCodeCorpusInvalid, hverrors.GetCode(err))
	assert.Contains(t, err.Error(), "best_match")
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), DefaultColumns())

	require.Error(t, err)
}

func TestReadCSV_CustomColumns(t *testing.T) {
	in := "han,vi,ref\n谢谢,Cảm ơn,Cảm ơn\n"

	records, err := ReadCSV(strings.NewReader(in), Columns{Source: "han", Translation: "vi", Reference: "ref"})

	require.NoError(t, err)
	assert.Equal(t, []Record{{Source: "谢谢", Translation: "Cảm ơn", Reference: "Cảm ơn"}}, records)
}
