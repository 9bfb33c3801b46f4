package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// Columns names the CSV header cells holding each record field.
type Columns struct {
	Source      string `yaml:"source"`
	Translation string `yaml:"translation"`
	Reference   string `yaml:"reference"`
}

// DefaultColumns returns the header names of the reference corpus.
func DefaultColumns() Columns {
	return Columns{
		Source:      "Câu tiếng Hán",
		Translation: "translation",
		Reference:   "best_match",
	}
}

// ReadCSV reads records from a CSV stream with a header row. Rows with a
// blank source are skipped; missing columns are an error.
func ReadCSV(r io.Reader, cols Columns) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, hverrors.New(hverrors.ErrCodeCorpusInvalid, "corpus CSV is empty", nil)
	}
	if err != nil {
		return nil, hverrors.New(hverrors.ErrCodeCorpusInvalid, "read CSV header", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		// Spreadsheet exports often carry a UTF-8 BOM on the first cell.
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	idx := [3]int{}
	for i, name := range []string{cols.Source, cols.Translation, cols.Reference} {
		p, ok := pos[name]
		if !ok {
			return nil, hverrors.New(hverrors.ErrCodeCorpusInvalid,
				fmt.Sprintf("CSV is missing column %q", name), nil)
		}
		idx[i] = p
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, hverrors.New(hverrors.ErrCodeCorpusInvalid,
				fmt.Sprintf("read CSV line %d", line), err)
		}
		rec := Record{
			Source:      field(row, idx[0]),
			Translation: field(row, idx[1]),
			Reference:   field(row, idx[2]),
		}
		if strings.TrimSpace(rec.Source) == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// DemoRecords returns the small built-in corpus used to initialize a demo index.
func DemoRecords() []Record {
	return []Record{
		{Source: "你好", Translation: "Xin chào", Reference: "Xin chào"},
		{Source: "谢谢", Translation: "Cảm ơn", Reference: "Cảm ơn"},
		{Source: "再见", Translation: "Tạm biệt", Reference: "Tạm biệt"},
	}
}
