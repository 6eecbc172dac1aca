package providers

import "strings"

// Asymmetric embedding models expect an instruction prefix that differs
// between indexed documents and search queries. Symmetric models get the
// text unchanged.
func EmbedPrefix(model string, kind EmbedKind) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "e5"):
		if kind == EmbedQuery {
			return "query: "
		}
		return "passage: "
	case strings.Contains(m, "nomic"):
		if kind == EmbedQuery {
			return "search_query: "
		}
		return "search_document: "
	default:
		return ""
	}
}

func applyPrefix(model string, kind EmbedKind, inputs []string) []string {
	prefix := EmbedPrefix(model, kind)
	if prefix == "" {
		return inputs
	}
	out := make([]string, len(inputs))
	for i, s := range inputs {
		out[i] = prefix + s
	}
	return out
}
