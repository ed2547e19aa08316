// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const failureKey = "Error while processing the request"

var markerLanguages = []language.Tag{language.English, language.Russian}

var markerMatcher = language.NewMatcher(markerLanguages)

func init() {
	_ = message.SetString(language.English, failureKey, failureKey)
	_ = message.SetString(language.Russian, failureKey, "Ошибка при обработке запроса")
}

// FailureMarker returns the text written over a failed generation in the
// given locale. Unknown or empty locales fall back to English.
func FailureMarker(locale string) string {
	tag := language.English
	if locale != "" {
		if t, err := language.Parse(locale); err == nil {
			if _, i, conf := markerMatcher.Match(t); conf != language.No {
				tag = markerLanguages[i]
			}
		}
	}
	return message.NewPrinter(tag).Sprintf(failureKey)
}
