package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

func extractXLSX(raw []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read xlsx sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line == "" {
				continue
			}
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return strings.TrimSpace(out.String()), nil
}
