package service

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"rekam/internal/submission/models"
	id "rekam/pkg/domain"
	dErrors "rekam/pkg/domain-errors"
)

const maxTextLength = 255

// validatePayload checks in against cat and returns the normalised payload.
// Only keys declared by the category are kept. previous supplies values for
// empty DefaultToday dates on edit; it may be nil.
func validatePayload(cat *models.Category, in, previous models.Payload, now time.Time) (models.Payload, error) {
	out := make(models.Payload, len(cat.Fields))
	for _, f := range cat.Fields {
		out[f.Key] = strings.TrimSpace(in[f.Key])
	}

	for _, f := range cat.Fields {
		v := out[f.Key]

		if f.Kind == models.KindDate && v == "" && f.DefaultToday {
			if prev := strings.TrimSpace(previous[f.Key]); prev != "" {
				v = prev
			} else {
				v = now.Format(models.DateLayout)
			}
			out[f.Key] = v
		}

		if cat.IsCompanion(f.Key) {
			continue
		}

		if v == "" {
			if f.Required {
				return nil, dErrors.Invalid(f.Key, f.Label+" is required")
			}
			continue
		}

		if err := validateValue(f, v, now); err != nil {
			return nil, err
		}

		if f.Kind == models.KindEnum && f.OtherField != "" {
			if v == f.OtherOption {
				if out[f.OtherField] == "" {
					companion, _ := cat.Field(f.OtherField)
					return nil, dErrors.Invalid(f.OtherField, companion.Label+" is required when "+f.Label+" is "+f.OtherOption)
				}
				if utf8.RuneCountInString(out[f.OtherField]) > maxTextLength {
					return nil, dErrors.Invalid(f.OtherField, "value is too long")
				}
			} else {
				out[f.OtherField] = ""
			}
		}
	}
	return out, nil
}

func validateValue(f models.Field, v string, now time.Time) error {
	switch f.Kind {
	case models.KindNIK:
		if !id.IsNIK(v) {
			return dErrors.Invalid(f.Key, f.Label+" must be exactly 16 digits")
		}
	case models.KindDate:
		d, err := parseDate(v)
		if err != nil {
			return dErrors.Invalid(f.Key, f.Label+" must be a date in YYYY-MM-DD format")
		}
		if f.NotFuture && d.After(today(now)) {
			return dErrors.Invalid(f.Key, f.Label+" cannot be in the future")
		}
	case models.KindEnum:
		if !slices.Contains(f.Options, v) {
			return dErrors.Invalid(f.Key, f.Label+" must be one of "+strings.Join(f.Options, ", "))
		}
	default:
		if utf8.RuneCountInString(v) > maxTextLength {
			return dErrors.Invalid(f.Key, f.Label+" is too long")
		}
	}
	return nil
}

// parseDate parses a calendar date, rejecting impossible days such as 2024-02-30.
func parseDate(v string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(v))
}

// today is now's calendar day as a UTC midnight, comparable with parseDate results.
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sanitizeSearch strips characters the store would interpret as wildcards or escapes.
func sanitizeSearch(q string) string {
	q = strings.Map(func(r rune) rune {
		switch r {
		case '%', '_', '\\':
			return -1
		}
		return r
	}, q)
	return strings.TrimSpace(q)
}
