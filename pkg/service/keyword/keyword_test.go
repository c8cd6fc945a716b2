package keyword_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/service/keyword"
)

func contains(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

func TestExtractCJK(t *testing.T) {
	t.Run("bigrams and trigrams for longer runs", func(t *testing.T) {
		tokens := keyword.Extract("春节干了什么")

		gt.Array(t, tokens).
			Has("春节").Has("节干").Has("干了").Has("了什").Has("什么").
			Has("春节干").Has("节干了").Has("干了什").Has("了什么")
		gt.Array(t, tokens).Length(9)
	})

	t.Run("run of exactly two keeps single token", func(t *testing.T) {
		tokens := keyword.Extract("除夕")
		gt.Array(t, tokens).Equal([]string{"除夕"})
	})

	t.Run("run of three keeps whole run plus bigrams", func(t *testing.T) {
		tokens := keyword.Extract("团年饭")
		gt.Array(t, tokens).Has("团年饭").Has("团年").Has("年饭")
		gt.Array(t, tokens).Length(3)
	})

	t.Run("lone CJK character is never a token", func(t *testing.T) {
		gt.Array(t, keyword.Extract("猫")).Length(0)
	})

	t.Run("non-CJK characters break runs", func(t *testing.T) {
		tokens := keyword.Extract("养了一只猫，猫生病了")
		// The comma splits the text into two independent runs. The first run
		// is five characters, so it only yields n-grams, never the whole run.
		gt.Array(t, tokens).Has("养了").Has("一只猫").Has("猫生病").Has("病了")
		gt.Value(t, contains(tokens, "养了一只猫")).Equal(false)
		gt.Value(t, contains(tokens, "猫猫")).Equal(false)
	})
}

func TestExtractLatin(t *testing.T) {
	t.Run("words of length two or more kept verbatim", func(t *testing.T) {
		tokens := keyword.Extract("Garan went to Tokyo")
		gt.Array(t, tokens).Has("Garan").Has("went").Has("to").Has("Tokyo")
	})

	t.Run("case is preserved", func(t *testing.T) {
		tokens := keyword.Extract("GoLang")
		gt.Array(t, tokens).Has("GoLang")
		gt.Value(t, contains(tokens, "golang")).Equal(false)
	})

	t.Run("single characters dropped", func(t *testing.T) {
		gt.Array(t, keyword.Extract("a b c")).Length(0)
	})
}

func TestExtractNumerals(t *testing.T) {
	t.Run("digit runs kept as tokens", func(t *testing.T) {
		tokens := keyword.Extract("2026除夕")
		gt.Array(t, tokens).Equal([]string{"2026", "除夕"})
	})

	t.Run("digits inside alnum runs survive separately", func(t *testing.T) {
		tokens := keyword.Extract("flight BA2490")
		gt.Array(t, tokens).Has("BA2490").Has("2490").Has("flight")
	})
}

func TestExtractMixedScripts(t *testing.T) {
	tokens := keyword.Extract("Garan春节")
	gt.Array(t, tokens).Equal([]string{"Garan", "春节"})
}

func TestExtractEmpty(t *testing.T) {
	gt.Array(t, keyword.Extract("")).Length(0)
	gt.Array(t, keyword.Extract("、。！？ …")).Length(0)
	gt.Array(t, keyword.Extract("   \n\t")).Length(0)
}

func TestExtractDeterministic(t *testing.T) {
	a := keyword.Extract("春节干了什么 Garan 2026")
	b := keyword.Extract("春节干了什么 Garan 2026")
	gt.Array(t, a).Equal(b)
}

func TestExtractAllSubstrings(t *testing.T) {
	// Every contiguous 2- and 3-character substring of a pure CJK string
	// must be present.
	s := []rune("春节准备去妈妈家")
	tokens := keyword.Extract(string(s))

	for i := 0; i+2 <= len(s); i++ {
		gt.Array(t, tokens).Has(string(s[i : i+2]))
	}
	for i := 0; i+3 <= len(s); i++ {
		gt.Array(t, tokens).Has(string(s[i : i+3]))
	}
}
