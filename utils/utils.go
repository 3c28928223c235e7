package utils

import (
	"math/rand"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// RemoveString returns hay without any occurrence of needle, preserving the
// order of the remaining elements.
func RemoveString(hay []string, needle string) []string {
	res := make([]string, 0, len(hay))
	for _, str := range hay {
		if str != needle {
			res = append(res, str)
		}
	}
	return res
}

// ChunkStrings splits ids into consecutive chunks of at most size elements.
// The last chunk may be shorter. A non-positive size returns the input as a
// single chunk.
func ChunkStrings(ids []string, size int) [][]string {
	if size <= 0 {
		return [][]string{ids}
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RandomAlphabetString generates a random string of length n with lower case
// alphabet letters, used for randomized test database names.
func RandomAlphabetString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
