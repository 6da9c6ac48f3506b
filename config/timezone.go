package config

import (
	"log"
	"os"
	"time"
)

// Location is the business time zone every scheduler decision is made in.
// Host-local time is never used so deployments behave the same everywhere.
var Location *time.Location

const defaultTimezone = "Europe/Madrid"

func LoadTimezone() {
	name := os.Getenv("BUSINESS_TIMEZONE")
	if name == "" {
		name = defaultTimezone
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Invalid BUSINESS_TIMEZONE %q, falling back to UTC: %v", name, err)
		loc = time.UTC
	}

	Location = loc
}
