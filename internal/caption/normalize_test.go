package caption

import "testing"

func TestCollapseMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "repeated event and emotion across language spans",
			in:   "<|zh|>🎼你好😊<|en|>🎼hello😊",
			want: "🎼你好hello😊",
		},
		{
			name: "distinct events are kept",
			in:   "<|zh|>🎼音乐<|en|>👏applause",
			want: "🎼音乐👏applause",
		},
		{
			name: "unknown event marker becomes question mark",
			in:   "<|nospeech|><|Event_UNK|>",
			want: "❓",
		},
		{
			name: "formatting artifact removed",
			in:   "<|en|>The.",
			want: "",
		},
		{
			name: "plain text untouched",
			in:   "hello",
			want: "hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseMarkers(tt.in); got != tt.want {
				t.Errorf("CollapseMarkers(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<|en|><|NEUTRAL|><|Speech|>hello there", "hello there"},
		{"<|zh|>withitn你好", "你好"},
		{"woitn raw text", "raw text"},
		{"  no tags  ", "no tags"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractLang(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<|en|><|NEUTRAL|>hello", "en"},
		{"<|yue|>早晨", "yue"},
		{"<|zh|>你好", "zh"},
		{"no leading tag", ""},
		{"text <|en|> tag not leading", ""},
	}
	for _, tt := range tests {
		if got := ExtractLang(tt.in); got != tt.want {
			t.Errorf("ExtractLang(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanForTranslate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"你好 world 123", "你好 world 123"},
		{"🎼hello😊", "hello"},
		{"标点，。！？保留", "标点，。！？保留"},
		{"tabs\tand\nnewlines stay", "tabs\tand\nnewlines stay"},
	}
	for _, tt := range tests {
		if got := CleanForTranslate(tt.in); got != tt.want {
			t.Errorf("CleanForTranslate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
