package util

import (
	"strings"
	"testing"
)

const (
	id1 = "a3f8c2d91b04"
	id2 = "b4e9d3a02c15"
	id3 = "c5fae4b13d26"
)

func TestIsContentID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"Valid12Hex", id1, true},
		{"Valid12HexAlt", id2, true},
		{"TooShort", "a3f8c2d91b0", false},
		{"TooLong", "a3f8c2d91b04f", false},
		{"Uppercase", "A3F8C2D91B04", false},
		{"NonHexLetter", "g3f8c2d91b04", false},
		{"WithSpace", "a3f8c2 91b04", false},
		{"Empty", "", false},
		{"AllDigits", "123456789012", true},
		{"AllHexLetters", "abcdefabcdef", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := isContentID(tc.in)
			if got != tc.want {
				t.Fatalf("isContentID(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtractContentID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"JustID", id1, id1},
		{"PrefixComma", "ENTITY," + id1, id1},
		{"MultiplePrefixes", "ENTITY,PERSON," + id1, id1},
		{"PrefixSemicolon", "PREFIX;" + id1, id1},
		{"PrefixPipe", "TYPE|" + id1, id1},
		{"PrefixColon", "doc:" + id1, id1},
		{"MixedSeparators", "A,B;C|" + id1, id1},
		{"TooShort", "abc123", ""},
		{"NoValidID", "ENTITY,SHORT", ""},
		{"SpacePrefix", "PREFIX " + id1, id1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractContentID(tc.in)
			if got != tc.want {
				t.Fatalf("extractContentID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIDs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "AlreadyOK",
			in:   "Already OK: [[" + id1 + "]]",
			want: "Already OK: [[" + id1 + "]]",
		},
		{
			name: "SingleBracket",
			in:   "Single: [" + id1 + "]",
			want: "Single: [[" + id1 + "]]",
		},
		{
			name: "BoldSingle",
			in:   "Bold single: **[" + id1 + "]**",
			want: "Bold single: [[" + id1 + "]]",
		},
		{
			name: "BoldDouble",
			in:   "Bold double: **[[" + id1 + "]]**",
			want: "Bold double: [[" + id1 + "]]",
		},
		{
			name: "LinkSkipped",
			in:   "Link: [text](http://example.com) and [" + id1 + "]",
			want: "Link: [text](http://example.com) and [[" + id1 + "]]",
		},
		{
			name: "DedupWhitespace",
			in:   "Dupes: [[" + id1 + "]] [[" + id1 + "]] then text",
			want: "Dupes: [[" + id1 + "]] then text",
		},
		{
			name: "DedupTight",
			in:   "Tight dupes: [[" + id1 + "]][[" + id1 + "]] next",
			want: "Tight dupes: [[" + id1 + "]] next",
		},
		{
			name: "DedupAcrossLines",
			in:   "Across lines:\n[[" + id1 + "]]\n[[" + id1 + "]] next",
			want: "Across lines:\n[[" + id1 + "]] next",
		},
		{
			name: "Mixed",
			in:   "Mixed: start [" + id1 + "] and [[" + id2 + "]] and **[" + id3 + "]** and [[" + id3 + "]] [[" + id3 + "]]",
			want: "Mixed: start [[" + id1 + "]] and [[" + id2 + "]] and [[" + id3 + "]] and [[" + id3 + "]]",
		},
		{
			name: "NestedSingleBracketKept",
			in:   "Keep nested: [a[b]c]",
			want: "Keep nested: [a[b]c]",
		},
		{
			name: "DanglingBracket",
			in:   "Dangling: [" + id1,
			want: "Dangling: [" + id1,
		},
		{
			name: "PunctuationAfterSingleBracket",
			in:   "Comma: [" + id1 + "],",
			want: "Comma: [[" + id1 + "]],",
		},
		{
			name: "RunOfDuplicatesWithWhitespace",
			in:   "Run: [[" + id1 + "]]  \t [[" + id1 + "]]   [[" + id1 + "]] end",
			want: "Run: [[" + id1 + "]] end",
		},
		{
			name: "BoldSpaced",
			in:   "Bold spaced: **  [[" + id2 + "]]  **",
			want: "Bold spaced: [[" + id2 + "]]",
		},
		{
			name: "NotDedupAcrossPunctuation",
			in:   "Comma separated: [[" + id1 + "]], [[" + id1 + "]]",
			want: "Comma separated: [[" + id1 + "]], [[" + id1 + "]]",
		},
		{
			name: "LeaveDoubleBracketThenParen",
			in:   "Token then paren: [[" + id1 + "]](x)",
			want: "Token then paren: [[" + id1 + "]](x)",
		},
		{
			name: "MultiSentences_Ellipses",
			in:   ".... [" + id1 + "] [[" + id1 + "]]. ... [" + id1 + "] [[" + id2 + "]]",
			want: ".... [[" + id1 + "]]. ... [[" + id1 + "]] [[" + id2 + "]]",
		},
		{
			name: "MultiSentences_VariousPunct",
			in:   "Start: [" + id1 + "] [[" + id1 + "]]! Next? [" + id1 + "] [[" + id1 + "]]...",
			want: "Start: [[" + id1 + "]]! Next? [[" + id1 + "]]...",
		},
		{
			name: "MultiLine_AdjacentDupesCollapse",
			in:   "Line1: [" + id1 + "] [[" + id1 + "]]\nLine2: [" + id1 + "] [[" + id2 + "]]",
			want: "Line1: [[" + id1 + "]]\nLine2: [[" + id1 + "]] [[" + id2 + "]]",
		},
		{
			name: "MultiLine_DupeAcrossNewlineWhitespace",
			in:   "First:\n[" + id1 + "]\n[[" + id1 + "]] next",
			want: "First:\n[[" + id1 + "]] next",
		},
		{
			name: "MultiParagraphs",
			in:   "Intro\n[" + id1 + "] [[" + id1 + "]]\n\nPara 2\n[" + id1 + "] [[" + id2 + "]]",
			want: "Intro\n[[" + id1 + "]]\n\nPara 2\n[[" + id1 + "]] [[" + id2 + "]]",
		},
		{
			name: "NoDedupAcrossPunctuation_Sentences",
			in:   "[[" + id1 + "]]. [[" + id1 + "]] next",
			want: "[[" + id1 + "]]. [[" + id1 + "]] next",
		},
		{
			name: "TrailingPunctAfterDedup",
			in:   "See: [" + id1 + "] [[" + id1 + "]], then more.",
			want: "See: [[" + id1 + "]], then more.",
		},
		{
			name: "SentenceBoundariesMultiple",
			in:   "One. [" + id1 + "] [[" + id1 + "]]. Two. [" + id1 + "] [[" + id2 + "]].",
			want: "One. [[" + id1 + "]]. Two. [[" + id1 + "]] [[" + id2 + "]].",
		},
		// Tokens the model decorated with invented labels
		{
			name: "LabeledCommaPrefix",
			in:   "Reference: [[ENTITY," + id1 + "]]",
			want: "Reference: [[" + id1 + "]]",
		},
		{
			name: "LabeledMultipleCommaPrefixes",
			in:   "Reference: [[ENTITY,PERSON," + id1 + "]]",
			want: "Reference: [[" + id1 + "]]",
		},
		{
			name: "LabeledSemicolonPrefix",
			in:   "Reference: [[PREFIX;" + id1 + "]]",
			want: "Reference: [[" + id1 + "]]",
		},
		{
			name: "LabeledPipePrefix",
			in:   "Reference: [[TYPE|" + id1 + "]]",
			want: "Reference: [[" + id1 + "]]",
		},
		{
			name: "LabeledColonPrefix",
			in:   "Reference: [[chunk:" + id1 + "]]",
			want: "Reference: [[" + id1 + "]]",
		},
		{
			name: "LabeledMixedSeparators",
			in:   "Reference: [[A,B;C|" + id1 + "]]",
			want: "Reference: [[" + id1 + "]]",
		},
		{
			name: "LabeledWithSpacePrefix",
			in:   "Reference: [[PREFIX " + id1 + "]]",
			want: "Reference: [[" + id1 + "]]",
		},
		{
			name: "LabeledMultipleIDs",
			in:   "See [[ENTITY," + id1 + "]] and [[EVENT," + id2 + "]]",
			want: "See [[" + id1 + "]] and [[" + id2 + "]]",
		},
		{
			name: "ValidIDNoChange",
			in:   "Valid: [[" + id1 + "]]",
			want: "Valid: [[" + id1 + "]]",
		},
		{
			name: "LabeledNoValidID",
			in:   "Invalid: [[ENTITY,SHORT]]",
			want: "Invalid: [[ENTITY,SHORT]]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeIDs(tc.in)
			if got != tc.want {
				t.Fatalf("NormalizeIDs(%q)\nwant: %q\ngot:  %q",
					tc.in, tc.want, got)
			}
			twice := NormalizeIDs(got)
			if twice != got {
				t.Fatalf("NormalizeIDs not idempotent for %q:\nfirst:  %q\nsecond: %q",
					tc.in, got, twice)
			}
		})
	}
}

func TestExtractIDs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"NoTokens", "plain text without citations", nil},
		{"Single", "text [[" + id1 + "]] more", []string{id1}},
		{"TwoDistinct", "[[" + id1 + "]] and [[" + id2 + "]]", []string{id1, id2}},
		{"DuplicatesCollapsed", "[[" + id1 + "]] x [[" + id2 + "]] y [[" + id1 + "]]", []string{id1, id2}},
		{"OrderOfFirstAppearance", "[[" + id3 + "]] [[" + id1 + "]] [[" + id3 + "]]", []string{id3, id1}},
		{"InnerWhitespaceTrimmed", "[[ " + id1 + " ]]", []string{id1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractIDs(tc.in)
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("ExtractIDs(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
