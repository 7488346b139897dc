package match

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	got := normalize("Celebrate Lunar New Year! 🎉 https://example.com/news/x   More info…")
	want := "celebrate lunar new year more info"
	if got != want {
		t.Fatalf("normalize: got %q, want %q", got, want)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	t.Parallel()

	input := "MiXeD — case, with 🎊 symbols & https://a.b/c?d=e"
	first := normalize(input)
	for i := 0; i < 10; i++ {
		if normalize(input) != first {
			t.Fatalf("normalize is not deterministic")
		}
	}
}

func TestCleanCommunityCutsAtNoise(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Lunar New Year in PokeGO #Promo 🎉 Increased odds...", "lunar new year in pokego"},
		{"Raid weekend! • Bonus one • Bonus two", "raid weekend"},
		{"Event details ➡ tap below", "event details"},
		{"Plain headline with no noise", "plain headline with no noise"},
	}
	for _, tc := range cases {
		if got := cleanCommunity(tc.in); got != tc.want {
			t.Fatalf("cleanCommunity(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenizeDropsStopwordsAndYears(t *testing.T) {
	t.Parallel()

	got := tokenize("the lunar new year event 2026 in pokemon go")
	want := []string{"lunar", "new", "year", "event"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenize: got %v, want %v", got, want)
	}
}

func TestSlugTokens(t *testing.T) {
	t.Parallel()

	got := slugTokens("https://site/news/lunar-new-year-event-2026")
	want := []string{"lunar", "new", "year", "event"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("slugTokens: got %v, want %v", got, want)
	}

	if tokens := slugTokens("https://site/news/event-page/?ref=x"); len(tokens) == 0 {
		t.Fatalf("expected tokens from slug with trailing slash and query")
	}
}

func TestJaccardEmptySidesScoreZero(t *testing.T) {
	t.Parallel()

	if score := jaccard(map[string]struct{}{}, map[string]struct{}{}); score != 0 {
		t.Fatalf("empty-vs-empty jaccard: got %f, want 0", score)
	}
}

func TestEntities(t *testing.T) {
	t.Parallel()

	got := entities("Lilligant debuts during the Community Day weekend with Trainers")
	if _, ok := got["lilligant"]; !ok {
		t.Fatalf("expected lilligant in entities, got %v", got)
	}
	for _, generic := range []string{"community", "weekend", "trainers"} {
		if _, ok := got[generic]; ok {
			t.Fatalf("generic word %q leaked into entities", generic)
		}
	}
}
