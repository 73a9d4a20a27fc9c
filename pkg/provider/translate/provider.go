// Package translate defines the Engine interface for text translation
// backends, plus language-code mapping between the short codes used on the
// wire and the NLLB-style codes most translation models expect.
//
// Translation is strictly best-effort in this system: when the backend is
// unavailable or fails, callers deliver the original-language subtitle with an
// empty translation instead of blocking or dropping the event.
package translate

import "context"

// Engine is the abstraction over any translation backend.
//
// Implementations must be safe for concurrent use.
type Engine interface {
	// Translate renders text from srcLang into tgtLang. Both language
	// arguments are NLLB-style codes (e.g. "zho_Hans", "eng_Latn"); use
	// [NLLBCode] to map short wire codes first. An empty result with a nil
	// error means the backend had nothing to say for this input.
	Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error)
}

// nllbCodes maps the short language codes used by the subtitle protocol and
// the ASR language tags to NLLB-200 codes.
var nllbCodes = map[string]string{
	"zh":  "zho_Hans",
	"en":  "eng_Latn",
	"ja":  "jpn_Jpan",
	"ko":  "kor_Hang",
	"ru":  "rus_Cyrl",
	"fr":  "fra_Latn",
	"de":  "deu_Latn",
	"es":  "spa_Latn",
	"ar":  "ara_Arab",
	"vi":  "vie_Latn",
	"th":  "tha_Thai",
	"id":  "ind_Latn",
	"ms":  "msa_Latn",
	"fil": "fil_Latn",
	"km":  "khm_Khmr",
	"my":  "bur_Mymr",
	"tr":  "tur_Latn",
	"it":  "ita_Latn",
	"pt":  "por_Latn",
	"hi":  "hin_Deva",
	"bn":  "ben_Beng",
	"ta":  "tam_Taml",
	"ur":  "urd_Arab",
	"yue": "yue_Hant",
}

// NLLBCode maps a short language code to its NLLB-200 code. Codes with no
// mapping are returned unchanged so that callers can pass through codes that
// are already in NLLB form.
func NLLBCode(short string) string {
	if code, ok := nllbCodes[short]; ok {
		return code
	}
	return short
}
