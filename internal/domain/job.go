package domain

import "strings"

// DubStatus is the status string reported by the dubbing provider.
// The provider owns the set of intermediate values (QUEUED, PROCESSING, ...);
// only the terminal markers below carry meaning here.
type DubStatus string

const (
	DubStatusCompleted DubStatus = "COMPLETED"
	DubStatusFailed    DubStatus = "FAILED"
	DubStatusError     DubStatus = "ERROR"
)

// NormalizeDubStatus upper-cases and trims a raw provider status.
func NormalizeDubStatus(raw string) DubStatus {
	return DubStatus(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsTerminal reports whether no further transition can happen.
func (s DubStatus) IsTerminal() bool {
	switch s {
	case DubStatusCompleted, DubStatusFailed, DubStatusError:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the job ended without artifacts.
// FAILED and ERROR are treated identically.
func (s DubStatus) IsFailure() bool {
	return s == DubStatusFailed || s == DubStatusError
}

// Lower returns the lower-case form exposed by the API.
func (s DubStatus) Lower() string {
	return strings.ToLower(string(s))
}

// DownloadDetail is one per-locale artifact of a finished dub job.
type DownloadDetail struct {
	Locale       string `json:"locale,omitempty"`
	Status       string `json:"status,omitempty"`
	DownloadURL  string `json:"download_url,omitempty"`
	SubtitleURL  string `json:"download_srt_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// DubPriorityLow is the default queue priority for new dub jobs.
const DubPriorityLow = "LOW"

// SupportedLocales lists the target locales accepted by the dubbing provider.
var SupportedLocales = []string{
	"en_US", "en_UK", "en_IN", "en_SCOTT", "en_AU",
	"fr_FR", "de_DE", "es_ES", "es_MX", "it_IT", "pt_BR", "pl_PL",
	"hi_IN", "ko_KR", "ta_IN", "bn_IN", "ja_JP", "zh_CN", "nl_NL", "fi_FI",
	"ru_RU", "tr_TR", "uk_UA", "da_DK", "id_ID", "ro_RO", "nb_NO",
}

var supportedLocaleSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SupportedLocales))
	for _, l := range SupportedLocales {
		set[l] = struct{}{}
	}
	return set
}()

// IsSupportedLocale reports whether locale is in SupportedLocales (exact match).
func IsSupportedLocale(locale string) bool {
	_, ok := supportedLocaleSet[locale]
	return ok
}
