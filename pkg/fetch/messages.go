package fetch

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys; the English text doubles as the key
const (
	msgOnlyKenuts      = "Only kenuts:// is supported"
	msgInvalidPort     = "Invalid port number: %s"
	msgInvalidHost     = "Invalid host address"
	msgConnectionError = "Connection error: %s"
	msgInvalidResponse = "Invalid response"
)

// Languages lists the tags with a translated catalog
var Languages = []language.Tag{language.English, language.Turkish}

var keys = []string{msgOnlyKenuts, msgInvalidPort, msgInvalidHost, msgConnectionError, msgInvalidResponse}

func init() {
	for _, key := range keys {
		if err := message.SetString(language.English, key, key); err != nil {
			panic(err)
		}
	}
	for key, text := range map[string]string{
		msgOnlyKenuts:      "Sadece kenuts:// destekleniyor",
		msgInvalidPort:     "Geçersiz port numarası: %s",
		msgInvalidHost:     "Geçersiz host adresi",
		msgConnectionError: "Bağlantı hatası: %s",
		msgInvalidResponse: "Geçersiz yanıt",
	} {
		if err := message.SetString(language.Turkish, key, text); err != nil {
			panic(err)
		}
	}
}

// ParseLanguage maps a user supplied tag ("tr", "en-US") to a supported language,
// falling back to English
func ParseLanguage(raw string) language.Tag {
	if raw == "" {
		return language.English
	}
	matcher := language.NewMatcher(Languages)
	tag, _, _ := matcher.Match(language.Make(raw))
	base, _ := tag.Base()
	for _, supported := range Languages {
		if b, _ := supported.Base(); b == base {
			return supported
		}
	}
	return language.English
}
