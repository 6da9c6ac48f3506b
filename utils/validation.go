package utils

import (
	"regexp"
	"strings"
)

var timeOfDayRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidatePhone checks if a phone number looks like a dialable number
func ValidatePhone(phone string) bool {
	cleaned := strings.ReplaceAll(phone, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "(", "")
	cleaned = strings.ReplaceAll(cleaned, ")", "")

	// Optional + prefix followed by up to 15 digits
	regex := `^\+?[1-9]\d{1,14}$`
	match, _ := regexp.MatchString(regex, cleaned)
	return match
}

// ValidateTimeOfDay checks an "HH:MM" 24-hour string.
func ValidateTimeOfDay(value string) bool {
	return timeOfDayRegex.MatchString(value)
}
