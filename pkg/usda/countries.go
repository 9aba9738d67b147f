package usda

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column headers of the country-codes workbook
const (
	countryCodeHeader        = "countryCode"
	countryDescriptionHeader = "countryDescription"
)

// countryAliases replaces the official long-form descriptions that are too
// wide for chart labels.
var countryAliases = map[string]string{
	"CHINA, PEOPLES REPUBLIC OF": "CHINA",
	"KOREA, REPUBLIC OF":         "S. KOREA",
}

// LoadCountryCodes reads the country-code lookup workbook and returns a map
// from ESR country code to cleaned description. The first sheet is expected
// to carry a header row naming countryCode and countryDescription columns.
func LoadCountryCodes(path string) (map[int]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open country codes workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("country codes workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("country codes workbook has no data rows")
	}

	codeCol, descCol := -1, -1
	for i, header := range rows[0] {
		switch strings.TrimSpace(header) {
		case countryCodeHeader:
			codeCol = i
		case countryDescriptionHeader:
			descCol = i
		}
	}
	if codeCol < 0 || descCol < 0 {
		return nil, fmt.Errorf("country codes workbook missing %q or %q column",
			countryCodeHeader, countryDescriptionHeader)
	}

	countries := make(map[int]string, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= codeCol || len(row) <= descCol {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(row[codeCol]))
		if err != nil {
			continue // header repeats and footnotes
		}
		countries[code] = NormalizeCountryName(row[descCol])
	}
	return countries, nil
}

// NormalizeCountryName trims a description and applies the display aliases
func NormalizeCountryName(name string) string {
	name = strings.TrimSpace(name)
	if alias, ok := countryAliases[name]; ok {
		return alias
	}
	return name
}
