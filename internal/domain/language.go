package domain

import "errors"

type Language string

const (
	Python3 Language = "python3"
	Java    Language = "java"
	Cpp     Language = "cpp"
	C       Language = "c"

	DefaultLanguage = Python3
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

var languages = []Language{Python3, Java, Cpp, C}

func Languages() []Language {
	cpy := make([]Language, len(languages))
	copy(cpy, languages)
	return cpy
}

func ParseLanguage(raw string) (Language, error) {
	lang := Language(raw)
	if !lang.IsValid() {
		return "", ErrUnsupportedLanguage
	}
	return lang, nil
}

func (l Language) IsValid() bool {
	for _, known := range languages {
		if l == known {
			return true
		}
	}
	return false
}

// Next cycles through the supported languages in declaration order.
func (l Language) Next() Language {
	for i, known := range languages {
		if l == known {
			return languages[(i+1)%len(languages)]
		}
	}
	return DefaultLanguage
}

func (l Language) String() string {
	return string(l)
}
