package filter

import (
	"testing"

	"tgdigest_go/models"
)

func TestApply(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		hashtags bool
		mentions bool
		want     string
	}{
		{"strip both", "Hello #world\ncc @bob see you", false, false, "Hello \ncc  see you"},
		{"keep hashtags", "Hello #world @bob", true, false, "Hello #world "},
		{"keep mentions", "Hello #world @bob", false, true, "Hello  @bob"},
		{"keep both", "Hello #world @bob", true, true, "Hello #world @bob"},
		{"unicode words", "Новости #главное_дня от @редакция2", false, false, "Новости  от "},
		{"bare symbols", "price # 5 and @ home", false, false, "price # 5 and @ home"},
		{"only tags", "#a #b", false, false, " "},
	}
	for _, c := range cases {
		ch := models.Channel{IncludeHashtags: c.hashtags, IncludeUserMentions: c.mentions}
		if got := Apply(c.text, ch); got != c.want {
			t.Errorf("%s: получено %q, ожидалось %q", c.name, got, c.want)
		}
	}
}

func TestApplyIdempotent(t *testing.T) {
	ch := models.Channel{}
	once := Apply("a #b @c d", ch)
	if twice := Apply(once, ch); twice != once {
		t.Fatalf("повторный проход изменил текст: %q -> %q", once, twice)
	}
}
