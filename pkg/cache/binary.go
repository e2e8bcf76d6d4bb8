package cache

import "bytes"

// binarySniffLimit is how many leading bytes are inspected when deciding
// whether content is binary.
const binarySniffLimit = 512

// isBinaryContent checks for null bytes or a high ratio of non-printable
// characters in the first few bytes of the content.
func isBinaryContent(data []byte) bool {
	sample := data
	if len(sample) > binarySniffLimit {
		sample = sample[:binarySniffLimit]
	}
	if len(sample) == 0 {
		return false // Empty files are considered text.
	}

	if bytes.Contains(sample, []byte{0}) {
		return true
	}

	nonPrintable := 0
	for _, b := range sample {
		if !isPrintable(b) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(sample)) > 0.3
}

// isPrintable checks if a byte represents a printable ASCII character or
// common whitespace. Multi-byte UTF-8 sequences use bytes above 0x7f, which
// are treated as printable so non-ASCII text files are not misclassified.
func isPrintable(b byte) bool {
	return b >= 32 || b == '\n' || b == '\r' || b == '\t'
}
