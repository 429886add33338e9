package vector

import (
	"fmt"
	"strconv"
)

// Metadata keys shared by the drivers that keep chunk metadata in a
// key/value payload (chroma, qdrant).
const (
	MetaSource = "source"
	MetaPage   = "page"
	MetaDocID  = "doc_id"
)

// MetadataString renders a metadata value as text. JSON numbers decode as
// float64, so whole numbers are printed without a fraction: page 12 stays
// "12", not "12.000000".
func MetadataString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return MetadataString(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
