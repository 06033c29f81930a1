package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// zipMagic prefixes every XLSX (OOXML zip) file
var zipMagic = []byte("PK\x03\x04")

// legacyEncodings are tried in order when the input is not valid UTF-8
var legacyEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"windows-1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
}

// isExcelFile reports whether the upload is an XLSX workbook
func isExcelFile(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}

// decodeText returns the input as UTF-8 along with the encoding it was read as
func decodeText(data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	for _, le := range legacyEncodings {
		decoded, err := le.enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		return string(decoded), le.name, nil
	}

	return "", "", &ValidationError{Message: "Could not read the file with any supported encoding"}
}

// detectDelimiter picks ';' for exports that use it (common with comma
// decimals), ',' otherwise
func detectDelimiter(text string) rune {
	firstLine, _, _ := strings.Cut(text, "\n")
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}

// readCSV decodes and splits a CSV statement into rows. It also returns the
// field delimiter and the detected text encoding.
func readCSV(data []byte) ([][]string, rune, string, error) {
	text, enc, err := decodeText(data)
	if err != nil {
		return nil, 0, "", err
	}

	comma := detectDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = comma
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, comma, enc, &ValidationError{Message: fmt.Sprintf("malformed CSV: %v", err)}
		}
		rows = append(rows, record)
	}
	return rows, comma, enc, nil
}

// readXLSX returns the rows of the first sheet of a workbook
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("could not open spreadsheet: %v", err)}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &ValidationError{Message: "spreadsheet has no sheets"}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// isBlankRow reports whether every cell is empty
func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
