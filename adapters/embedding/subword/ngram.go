package subword

// ngrams lists the character n-grams of a bracketed word with minn <= n <= maxn.
// Characters are UTF-8 sequences; single-character n-grams at either bracket
// are left out.
func ngrams(word string, minn, maxn int) []string {
	var out []string
	for i := 0; i < len(word); i++ {
		if isContinuation(word[i]) {
			continue
		}
		j := i
		for n := 1; j < len(word) && n <= maxn; n++ {
			j++
			for j < len(word) && isContinuation(word[j]) {
				j++
			}
			if n >= minn && !(n == 1 && (i == 0 || j == len(word))) {
				out = append(out, word[i:j])
			}
		}
	}
	return out
}

func isContinuation(b byte) bool {
	return b&0xC0 == 0x80
}

// hash is 32-bit FNV-1a over the bytes taken as signed chars, which is how
// fastText buckets n-grams.
func hash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(int8(s[i]))
		h *= 16777619
	}
	return h
}
