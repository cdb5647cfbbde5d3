package giftbox

import (
	"fmt"
	"strings"
)

// FieldError describes one invalid draft field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists everything that keeps a draft from being submitted.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "giftbox: invalid draft"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "giftbox: invalid draft: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a draft for submission. The draft should be normalized first; negative
// delays are treated as zero either way.
func (d Draft) Validate(limits Limits) error {
	limits = limits.withDefaults()
	verr := &ValidationError{}

	if strings.TrimSpace(d.Title) == "" {
		verr.add("title", "title is required")
	}
	if len(d.Cards) == 0 {
		verr.add("cards", "at least one card is required")
	}
	if len(d.Cards) > limits.MaxCards {
		verr.add("cards", "at most %d cards are allowed", limits.MaxCards)
	}

	seen := make(map[string]struct{}, len(d.Cards))
	for i, card := range d.Cards {
		prefix := fmt.Sprintf("cards[%d]", i)
		if strings.TrimSpace(card.Message) == "" {
			verr.add(prefix+".message", "message is required")
		}
		if card.UnlockDelayDays > limits.MaxUnlockDelayDays {
			verr.add(prefix+".unlock_delay_days", "delay cannot exceed %d days", limits.MaxUnlockDelayDays)
		}
		if card.UploadPending() {
			verr.add(prefix, "media upload still in progress")
		}
		id := strings.TrimSpace(card.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			verr.add(prefix+".id", "duplicate card id")
			continue
		}
		seen[id] = struct{}{}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ReadyForCheckout reports whether the checkout affordance should be enabled.
func (d Draft) ReadyForCheckout(limits Limits) bool {
	return d.Validate(limits) == nil
}
