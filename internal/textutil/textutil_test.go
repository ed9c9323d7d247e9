package textutil

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsWord_TurkishLetters(t *testing.T) {
	re := regexp.MustCompile(`UN`)
	assert.True(t, ContainsWord(re, "UN 2 KG"))
	assert.True(t, ContainsWord(re, "EFSANE UN"))
	assert.False(t, ContainsWord(re, "UNLU"))
	// Ş is a letter, so there is no boundary between Ş and U
	assert.False(t, ContainsWord(re, "ŞUN"))
}

func TestReplaceWords(t *testing.T) {
	re := regexp.MustCompile(`\d+[.,]\d+`)
	assert.Equal(t, "SÜT  X", ReplaceWords(re, "SÜT 12,50 X", ""))
	assert.Equal(t, "A1,5", ReplaceWords(re, "A1,5", ""))
	assert.Equal(t, "abc", ReplaceWords(re, "abc", ""))
}

func TestFindWord(t *testing.T) {
	re := regexp.MustCompile(`(?i)çay`)
	m, ok := FindWord(re, "SİYAH ÇAY 500")
	assert.True(t, ok)
	assert.Equal(t, "ÇAY", m)
	_, ok = FindWord(re, "ÇAYKUR")
	assert.False(t, ok)
}

func TestCaseHelpers(t *testing.T) {
	assert.Equal(t, "Süt Yarım Yağlı", TitleTR("SÜT YARIM YAĞLI"))
	assert.Equal(t, "İNCİR", UpperTR("incir"))
	assert.Equal(t, "pirinç", LowerTR("PİRİNÇ"))
	assert.Equal(t, "ıspanak", LowerTR("ISPANAK"))
	assert.Equal(t, "süt", FoldKey("SÜT"))
	assert.Equal(t, "a b", CollapseSpaces("  a \t  b "))
	assert.Equal(t, 3, RuneLen("Süt"))
}
