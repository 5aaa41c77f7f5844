// Package intake turns inbound events into ticket drafts: rule matching,
// fallback placement and ticket assembly.
package intake

import (
	"crypto/subtle"
	"strings"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// MatchWebhookRule returns the first active rule whose key equals key.
func MatchWebhookRule(key string, rules []domain.WebhookRule) (*domain.WebhookRule, bool) {
	if key == "" {
		return nil, false
	}
	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive || rule.Key == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(rule.Key), []byte(key)) == 1 {
			return rule, true
		}
	}
	return nil, false
}

// ClassifyEmail returns the first rule, in configured order, with any keyword
// found case-insensitively in subject+body. Blank keywords never match.
func ClassifyEmail(subject, body string, rules []domain.EmailRule) (*domain.EmailRule, bool) {
	haystack := strings.ToLower(subject + "\n" + body)
	for i := range rules {
		for _, keyword := range rules[i].MatchKeywords {
			needle := strings.ToLower(strings.TrimSpace(keyword))
			if needle == "" {
				continue
			}
			if strings.Contains(haystack, needle) {
				return &rules[i], true
			}
		}
	}
	return nil, false
}

// DuplicateWebhookKeys lists keys shared by more than one active rule.
func DuplicateWebhookKeys(rules []domain.WebhookRule) []string {
	counts := map[string]int{}
	var order []string
	for _, rule := range rules {
		if !rule.IsActive || rule.Key == "" {
			continue
		}
		if counts[rule.Key] == 0 {
			order = append(order, rule.Key)
		}
		counts[rule.Key]++
	}
	var dups []string
	for _, key := range order {
		if counts[key] > 1 {
			dups = append(dups, key)
		}
	}
	return dups
}
