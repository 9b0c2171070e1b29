package dataset

import (
	"fmt"
	"strings"
)

// extractColumnNames extracts column names from "name:Type" definitions.
func extractColumnNames(colDefs []string) ([]string, error) {
	names := make([]string, 0, len(colDefs))
	for _, colDef := range colDefs {
		name, err := extractColumnName(colDef)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func extractColumnName(colDef string) (string, error) {
	name, _, ok := strings.Cut(colDef, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", fmt.Errorf("invalid column definition %q: expected format 'name:type'", colDef)
	}
	return name, nil
}
