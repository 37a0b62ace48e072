package dashboard

import (
	"context"
	"strings"
)

// TranslationService resolves message keys for a locale. The built-in catalog
// is used when no service is configured or it returns nothing.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

// DefaultLocale is used when a session does not carry one.
const DefaultLocale = "ru"

// Message keys shared by the dashboard engine and the integration wizard.
const (
	MsgStatsUnavailable      = "stats.unavailable"
	MsgWizardProfilesFailed  = "wizard.profiles.failed"
	MsgWizardCampaignsFailed = "wizard.campaigns.failed"
	MsgWizardCountersFailed  = "wizard.counters.failed"
	MsgWizardGoalsFailed     = "wizard.goals.failed"
	MsgWizardLoadFailed      = "wizard.integration.failed"
	MsgWizardCommitFailed    = "wizard.commit.failed"
	MsgWizardCommitted       = "wizard.commit.succeeded"
)

var catalog = map[string]map[string]string{
	MsgStatsUnavailable: {
		"default": "Не удалось загрузить данные статистики",
		"en":      "Failed to load statistics",
	},
	MsgWizardProfilesFailed: {
		"default": "Ошибка при загрузке профилей",
		"en":      "Failed to load profiles",
	},
	MsgWizardCampaignsFailed: {
		"default": "Ошибка при загрузке кампаний",
		"en":      "Failed to load campaigns",
	},
	MsgWizardCountersFailed: {
		"default": "Не удалось загрузить счетчики Метрики.",
		"en":      "Failed to load Metrica counters.",
	},
	MsgWizardGoalsFailed: {
		"default": "Не удалось загрузить статистику целей Метрики.",
		"en":      "Failed to load Metrica goal statistics.",
	},
	MsgWizardLoadFailed: {
		"default": "Ошибка при загрузке данных интеграции",
		"en":      "Failed to load integration",
	},
	MsgWizardCommitFailed: {
		"default": "Ошибка при завершении настройки",
		"en":      "Failed to finish integration setup",
	},
	MsgWizardCommitted: {
		"default": "Интеграция успешно настроена!",
		"en":      "Integration configured successfully!",
	},
}

// Message returns the catalog text for key in locale.
func Message(key, locale string) string {
	return ResolveLocalizedValue(catalog[key], locale, key)
}

// Translate prefers svc and falls back to the built-in catalog.
func Translate(ctx context.Context, svc TranslationService, key, locale string) string {
	return translateOrFallback(ctx, svc, key, locale, Message(key, locale), nil)
}

// ResolveLocalizedValue selects the best translation for the provided locale and falls back to the supplied value.
// Keys are matched case-insensitively, and language-region pairs (`en-us`) fall back to their
// base language (`en`) when present.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if strings.EqualFold(key, candidate) && value != "" {
				return value
			}
		}
	}
	return fallback
}

func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	candidates := []string{locale}
	if idx := strings.Index(locale, "-"); idx > 0 {
		candidates = append(candidates, locale[:idx])
	}
	return append(candidates, "default")
}

func normalizeLocale(locale string) string {
	return strings.TrimSpace(strings.ToLower(locale))
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale, fallback string, params map[string]any) string {
	if svc != nil {
		if translated, err := svc.Translate(ctx, key, locale, params); err == nil && translated != "" {
			return translated
		}
	}
	if fallback != "" {
		return fallback
	}
	return key
}
