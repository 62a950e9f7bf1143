package grid

import (
	"fmt"
	"strings"
)

// CoerceCellValue converts a raw value sent by an editor into what is stored
// for a column of type t. A nil result is stored as JSON null.
//
// Number columns keep finite numbers only. Text-like columns keep the raw
// string unless it is blank. Attachment columns pass through, except the
// empty string.
func CoerceCellValue(t ColumnType, v any) (any, error) {
	switch t {
	case ColumnNumber:
		if v == nil {
			return nil, nil
		}
		if f, ok := NumberOf(v); ok {
			return f, nil
		}
		return nil, nil
	case ColumnText, ColumnSingleSelect:
		if v == nil {
			return nil, nil
		}
		s := stringOf(v)
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return s, nil
	case ColumnAttachment:
		if s, ok := v.(string); ok && s == "" {
			return nil, nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown column type %q", t)
	}
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// Matches how JSON encodes the number.
		if f, ok := NumberOf(x); ok {
			return formatNumber(f)
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}
