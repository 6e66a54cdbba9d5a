package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_SetReportsChange(t *testing.T) {
	doc := NewDocument()
	assert.True(t, doc.IsEmpty())

	assert.True(t, doc.Set("a"))
	assert.False(t, doc.Set("a"))
	assert.True(t, doc.Set(""))
	assert.True(t, doc.IsEmpty())
}

func TestDocument_ResetKeepsLanguage(t *testing.T) {
	doc := NewDocument()
	doc.Set("print(1)")
	assert.NoError(t, doc.SetLanguage(C))

	doc.Reset()

	assert.Equal(t, "", doc.Buffer())
	assert.Equal(t, C, doc.Language())
}

func TestDocument_SetLanguageRejectsUnknown(t *testing.T) {
	doc := NewDocument()

	assert.ErrorIs(t, doc.SetLanguage("cobol"), ErrUnsupportedLanguage)
	assert.Equal(t, DefaultLanguage, doc.Language())
}

func TestLanguage_Parse(t *testing.T) {
	for _, lang := range Languages() {
		parsed, err := ParseLanguage(string(lang))
		assert.NoError(t, err)
		assert.Equal(t, lang, parsed)
	}

	_, err := ParseLanguage("Python3")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestLanguage_NextCycles(t *testing.T) {
	assert.Equal(t, Java, Python3.Next())
	assert.Equal(t, Cpp, Java.Next())
	assert.Equal(t, C, Cpp.Next())
	assert.Equal(t, Python3, C.Next())
	assert.Equal(t, DefaultLanguage, Language("cobol").Next())
}

func TestCompileError_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, DefaultCompileError, (&CompileError{StatusCode: 500}).Error())
	assert.Equal(t, "boom", (&CompileError{Message: "boom"}).Error())
}
