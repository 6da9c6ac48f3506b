package services

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"whatscrm-backend/models"
	"whatscrm-backend/utils"
)

// BroadcastScheduler drives all recurring zone broadcasts. One instance is
// created at startup and lives for the whole process; Start is safe to call
// more than once but only ever launches a single loop.
//
// Rules match on an exact minute, so the 30-second cadence oversamples each
// minute twice; LastRunDate keeps a rule from firing again within the same
// day. The date stamp is committed in the same transaction as the run's
// send records, so a crash mid-run leaves the rule unstamped and it is
// retried whole on the next tick.
type BroadcastScheduler struct {
	db       *gorm.DB
	gateway  MessageGateway
	location *time.Location

	cron      *cron.Cron
	startOnce sync.Once

	// Ticks never overlap: a slow run inside the matching minute must
	// finish and stamp LastRunDate before the next tick reads the rules,
	// or the rule would double-fire.
	tickMu sync.Mutex
}

func NewBroadcastScheduler(db *gorm.DB, gateway MessageGateway, location *time.Location) *BroadcastScheduler {
	return &BroadcastScheduler{
		db:       db,
		gateway:  gateway,
		location: location,
	}
}

// Start launches the background loop. There is no stop: the loop runs until
// process shutdown, and disabling a rule is the way to silence it.
func (s *BroadcastScheduler) Start() {
	s.startOnce.Do(func() {
		s.cron = cron.New(
			cron.WithLocation(s.location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		)
		s.cron.AddFunc("@every 30s", func() {
			s.Tick(time.Now().In(s.location))
		})
		s.cron.Start()
		log.Println("Broadcast scheduler started")
	})
}

// Tick evaluates every enabled rule against the given instant, which must
// already be in the business time zone. Concurrent callers are serialized.
func (s *BroadcastScheduler) Tick(now time.Time) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	weekday := utils.BusinessWeekday(now)
	currentMinute := now.Format("15:04")
	today := utils.BeginningOfDay(now)

	var rules []models.BroadcastRule
	if err := s.db.Where("enabled = ?", true).Find(&rules).Error; err != nil {
		log.Printf("Broadcast tick: failed to load rules: %v", err)
		return
	}

	for i := range rules {
		rule := &rules[i]

		if !rule.RunsOn(weekday) {
			continue
		}
		if rule.TimeOfDay != currentMinute {
			continue
		}
		if utils.SameDay(rule.LastRunDate, today) {
			continue
		}

		s.runRule(rule, today)
	}
}

// runRule fires one due rule against the zone's current active customers.
// Everything is guarded so a broken rule can never take down the loop or
// starve the remaining rules in the tick.
func (s *BroadcastScheduler) runRule(rule *models.BroadcastRule, today time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Broadcast rule %s: recovered from panic: %v", rule.ID, r)
		}
	}()

	var zone models.Zone
	if err := s.db.First(&zone, "id = ?", rule.ZoneID).Error; err != nil {
		// Zone deleted out from under the rule: skip without stamping
		// LastRunDate so the rule keeps retrying until an admin fixes it.
		log.Printf("Broadcast rule %s: zone %s not found, skipping", rule.ID, rule.ZoneID)
		return
	}

	var template models.MessageTemplate
	if err := s.db.First(&template, "id = ?", rule.TemplateID).Error; err != nil {
		log.Printf("Broadcast rule %s: template %s not found, skipping", rule.ID, rule.TemplateID)
		return
	}

	// Membership is resolved fresh on every firing, never cached.
	var customers []models.Customer
	if err := s.db.Where("zone_id = ? AND is_active = ?", rule.ZoneID, true).
		Find(&customers).Error; err != nil {
		log.Printf("Broadcast rule %s: failed to load customers: %v", rule.ID, err)
		return
	}

	link := PublicOffersLink()
	records := make([]models.SendRecord, 0, len(customers))
	sent := 0

	for _, customer := range customers {
		text := RenderTemplate(template.Content, map[string]string{
			"nombre_cliente": customer.Name,
			"zona":           zone.Name,
			"enlace_web":     link,
		})

		result := s.gateway.SendText(customer.Phone, text)

		record := models.SendRecord{
			CustomerID:   customer.ID,
			TemplateID:   template.ID,
			RenderedText: text,
			Success:      result.Success,
		}

		if result.Success {
			sentAt := time.Now().In(s.location)
			record.SentAt = &sentAt
			sent++

			// Best effort: the broadcast must not fail because the inbox
			// thread could not be updated.
			if err := RegisterOutgoing(s.db, NormalizePhone(customer.Phone), text, sentAt, result.ExternalID); err != nil {
				log.Printf("Broadcast rule %s: could not register conversation for %s: %v", rule.ID, customer.Phone, err)
			}
		} else {
			errMsg := result.ErrorMessage
			record.Error = &errMsg
			log.Printf("Broadcast rule %s: send to %s failed: %s", rule.ID, customer.Phone, errMsg)
		}

		records = append(records, record)
	}

	// The whole batch plus the day stamp commit together: readers never see
	// a half-written run, and a failed commit reruns the rule next tick.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.BroadcastRule{}).
			Where("id = ?", rule.ID).
			Update("last_run_date", today).Error
	})
	if err != nil {
		log.Printf("Broadcast rule %s: failed to commit run: %v", rule.ID, err)
		return
	}

	rule.LastRunDate = &today
	log.Printf("Broadcast rule %s fired for zone %q: %d/%d sent", rule.ID, zone.Name, sent, len(customers))
}
