package bedrock

import (
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
)

// metadataString returns the first non-empty string value among the given
// metadata keys.
func metadataString(md map[string]document.Interface, keys ...string) string {
	for _, key := range keys {
		doc, ok := md[key]
		if !ok || doc == nil {
			continue
		}
		var s string
		if err := doc.UnmarshalSmithyDocument(&s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// metadataNumber decodes a numeric metadata value.
func metadataNumber(md map[string]document.Interface, key string) (float64, bool) {
	doc, ok := md[key]
	if !ok || doc == nil {
		return 0, false
	}
	var n float64
	if err := doc.UnmarshalSmithyDocument(&n); err != nil {
		return 0, false
	}
	return n, true
}
