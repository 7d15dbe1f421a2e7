package i18n

import "strings"

// Translator retrieves localized messages for error codes.
// data provides optional values to embed in the message ("value",
// "expected", "class", "key", "detail").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":   "{value} is not {expected}",
		"not_nullable":   "null is not allowed",
		"validation":     "{value} failed validation",
		"mutation":       "{value} could not be transformed: {detail}",
		"unknown_key":    "unknown field",
		"invalid_key":    "key {key}: {detail}",
		"not_instance":   "{value} is not an instance of {class}",
		"unhashable":     "{value} is not hashable",
		"overflow":       "{value} overflows {expected}",
		"invalid_format": "{value} is not valid {expected}",
		"custom":         "{detail}",
	},
	"ja": {
		"invalid_type":   "{value} は {expected} ではありません",
		"not_nullable":   "null は許可されていません",
		"validation":     "{value} は検証に失敗しました",
		"mutation":       "{value} を変換できません: {detail}",
		"unknown_key":    "未知のフィールドです",
		"invalid_key":    "キー {key}: {detail}",
		"not_instance":   "{value} は {class} のインスタンスではありません",
		"unhashable":     "{value} はハッシュ可能ではありません",
		"overflow":       "{value} は {expected} の範囲を超えています",
		"invalid_format": "{value} は有効な {expected} ではありません",
		"custom":         "{detail}",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	tmpl, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if len(data) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
