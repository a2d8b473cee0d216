package middleware

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxMessageBytes = 100000

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateMessageContent validates visitor message text.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message cannot be empty")
	}
	if len(content) > maxMessageBytes {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateVisitorID validates a visitor ID.
func ValidateVisitorID(id string) error {
	if len(id) == 0 {
		return errors.New("visitor ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("visitor ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("visitor ID must be valid UTF-8")
	}
	return nil
}

// ValidateAgentSlug validates an agent slug.
func ValidateAgentSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return errors.New("invalid agent slug format")
	}
	return nil
}

// ValidateConversationID validates a conversation ID. Empty is allowed.
func ValidateConversationID(id string) error {
	if len(id) > 128 {
		return errors.New("conversation ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("conversation ID must be valid UTF-8")
	}
	return nil
}
