package providers

import "testing"

func TestEmbedPrefix(t *testing.T) {
	cases := []struct {
		model string
		kind  EmbedKind
		want  string
	}{
		{"e5-base-v2", EmbedDocument, "passage: "},
		{"e5-base-v2", EmbedQuery, "query: "},
		{"nomic-embed-text", EmbedDocument, "search_document: "},
		{"nomic-embed-text", EmbedQuery, "search_query: "},
		{"text-embedding-3-small", EmbedDocument, ""},
	}
	for _, c := range cases {
		if got := EmbedPrefix(c.model, c.kind); got != c.want {
			t.Fatalf("prefix %s/%s: got %q want %q", c.model, c.kind, got, c.want)
		}
	}
}

func TestApplyPrefix(t *testing.T) {
	out := applyPrefix("nomic-embed-text", EmbedQuery, []string{"graph attention"})
	if out[0] != "search_query: graph attention" {
		t.Fatalf("unexpected prefixed input: %q", out[0])
	}
	same := applyPrefix("mock", EmbedQuery, []string{"graph attention"})
	if same[0] != "graph attention" {
		t.Fatalf("symmetric model should pass through, got %q", same[0])
	}
}
