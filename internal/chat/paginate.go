package chat

import "strings"

// MessageLimit is the platform's maximum message length.
const MessageLimit = 2000

// Paginate splits text into pages of at most limit bytes, breaking on line
// boundaries where possible.
func Paginate(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	var pages []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
		}
		pages = append(pages, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" || len(pages) == 0 {
		pages = append(pages, text)
	}
	return pages
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
