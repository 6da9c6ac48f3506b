package services

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whatscrm-backend/models"
)

// stubGateway records every send and fails for configured phones.
type stubGateway struct {
	sent    []string
	bodies  map[string]string
	failFor map[string]string
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		bodies:  make(map[string]string),
		failFor: make(map[string]string),
	}
}

func (g *stubGateway) SendText(phone, body string) SendResult {
	g.sent = append(g.sent, phone)
	g.bodies[phone] = body
	if msg, ok := g.failFor[phone]; ok {
		return SendResult{ErrorMessage: msg}
	}
	return SendResult{Success: true, ExternalID: "stub-" + phone}
}

func (g *stubGateway) CheckStatus() (bool, string) { return true, "stub" }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// A second pooled connection would see its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Zone{},
		&models.Customer{},
		&models.MessageTemplate{},
		&models.BroadcastRule{},
		&models.SendRecord{},
		&models.Conversation{},
		&models.ConversationMessage{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedZoneTemplate(t *testing.T, db *gorm.DB, zoneName, content string) (models.Zone, models.MessageTemplate) {
	t.Helper()
	zone := models.Zone{Name: zoneName}
	if err := db.Create(&zone).Error; err != nil {
		t.Fatalf("create zone: %v", err)
	}
	template := models.MessageTemplate{Name: "test template", Content: content, IsActive: true}
	if err := db.Create(&template).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}
	return zone, template
}

func seedCustomer(t *testing.T, db *gorm.DB, zone models.Zone, name, phone string) models.Customer {
	t.Helper()
	customer := models.Customer{ZoneID: zone.ID, Name: name, Phone: phone, IsActive: true}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

func countRecords(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.SendRecord{}).Count(&n).Error; err != nil {
		t.Fatalf("count send records: %v", err)
	}
	return n
}

func reloadRule(t *testing.T, db *gorm.DB, id uuid.UUID) models.BroadcastRule {
	t.Helper()
	var rule models.BroadcastRule
	if err := db.First(&rule, "id = ?", id).Error; err != nil {
		t.Fatalf("reload rule: %v", err)
	}
	return rule
}

// monday9 is Monday 2026-08-31 09:00 UTC, business weekday 0.
var monday9 = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

func TestTickFiresRuleOncePerDay(t *testing.T) {
	db := newTestDB(t)
	zone, template := seedZoneTemplate(t, db, "Centro", "Hola {nombre_cliente}")
	seedCustomer(t, db, zone, "Ana", "612345678")

	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: template.ID,
		Weekdays:   "0",
		TimeOfDay:  "09:00",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	gateway := newStubGateway()
	s := NewBroadcastScheduler(db, gateway, time.UTC)

	// Two ticks inside the matching minute plus one more, like the 30s loop.
	s.Tick(monday9)
	s.Tick(monday9.Add(30 * time.Second))
	s.Tick(monday9.Add(45 * time.Second))

	if got := countRecords(t, db); got != 1 {
		t.Fatalf("expected exactly 1 send record, got %d", got)
	}
	if len(gateway.sent) != 1 {
		t.Fatalf("expected exactly 1 gateway send, got %d", len(gateway.sent))
	}

	reloaded := reloadRule(t, db, rule.ID)
	if reloaded.LastRunDate == nil {
		t.Fatal("expected LastRunDate to be stamped")
	}
	y, m, d := reloaded.LastRunDate.Date()
	if y != 2026 || m != time.August || d != 31 {
		t.Fatalf("expected LastRunDate 2026-08-31, got %v", reloaded.LastRunDate)
	}
}

func TestTickSkipsWrongWeekday(t *testing.T) {
	db := newTestDB(t)
	zone, template := seedZoneTemplate(t, db, "Norte", "hola")
	seedCustomer(t, db, zone, "Ana", "612345678")

	// Tuesday and Thursday only.
	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: template.ID,
		Weekdays:   "1,3",
		TimeOfDay:  "09:00",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	s := NewBroadcastScheduler(db, newStubGateway(), time.UTC)
	s.Tick(monday9)

	if got := countRecords(t, db); got != 0 {
		t.Fatalf("rule fired on a Monday despite weekdays 1,3: %d records", got)
	}
	if reloaded := reloadRule(t, db, rule.ID); reloaded.LastRunDate != nil {
		t.Fatal("LastRunDate should stay nil when the rule did not fire")
	}
}

func TestTickMatchesExactMinuteOnly(t *testing.T) {
	db := newTestDB(t)
	zone, template := seedZoneTemplate(t, db, "Sur", "hola")
	seedCustomer(t, db, zone, "Ana", "612345678")

	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: template.ID,
		Weekdays:   "0",
		TimeOfDay:  "09:05",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	s := NewBroadcastScheduler(db, newStubGateway(), time.UTC)

	s.Tick(monday9.Add(4 * time.Minute)) // 09:04
	s.Tick(monday9.Add(6 * time.Minute)) // 09:06
	if got := countRecords(t, db); got != 0 {
		t.Fatalf("rule fired outside its minute: %d records", got)
	}

	s.Tick(monday9.Add(5 * time.Minute)) // 09:05
	if got := countRecords(t, db); got != 1 {
		t.Fatalf("rule did not fire at its exact minute: %d records", got)
	}
}

func TestDisabledRuleNeverFires(t *testing.T) {
	db := newTestDB(t)
	zone, template := seedZoneTemplate(t, db, "Este", "hola")
	seedCustomer(t, db, zone, "Ana", "612345678")

	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: template.ID,
		Weekdays:   "0",
		TimeOfDay:  "09:00",
		Enabled:    false,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}
	db.Model(&rule).Update("enabled", false)

	s := NewBroadcastScheduler(db, newStubGateway(), time.UTC)
	s.Tick(monday9)

	if got := countRecords(t, db); got != 0 {
		t.Fatalf("disabled rule fired: %d records", got)
	}
}

func TestRunIsolatesRecipientFailures(t *testing.T) {
	db := newTestDB(t)
	zone, template := seedZoneTemplate(t, db, "Centro", "Hola {nombre_cliente}")
	seedCustomer(t, db, zone, "Ana", "611111111")
	seedCustomer(t, db, zone, "Berta", "622222222")
	seedCustomer(t, db, zone, "Carlos", "633333333")

	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: template.ID,
		Weekdays:   "0",
		TimeOfDay:  "09:00",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	gateway := newStubGateway()
	gateway.failFor["622222222"] = "provider rejected number"

	s := NewBroadcastScheduler(db, gateway, time.UTC)
	s.Tick(monday9)

	if len(gateway.sent) != 3 {
		t.Fatalf("expected all 3 recipients attempted, got %d", len(gateway.sent))
	}

	var records []models.SendRecord
	if err := db.Find(&records).Error; err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 send records, got %d", len(records))
	}

	var ok, failed int
	for _, record := range records {
		if record.Success {
			ok++
			if record.SentAt == nil {
				t.Error("successful record missing SentAt")
			}
		} else {
			failed++
			if record.SentAt != nil {
				t.Error("failed record should have nil SentAt")
			}
			if record.Error == nil || !strings.Contains(*record.Error, "provider rejected") {
				t.Errorf("failed record missing error text: %v", record.Error)
			}
		}
	}
	if ok != 2 || failed != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", ok, failed)
	}

	if reloaded := reloadRule(t, db, rule.ID); reloaded.LastRunDate == nil {
		t.Fatal("partial failure must still stamp LastRunDate")
	}
}

func TestRecipientsResolvedFreshEachRun(t *testing.T) {
	db := newTestDB(t)
	zone, template := seedZoneTemplate(t, db, "Centro", "hola")
	ana := seedCustomer(t, db, zone, "Ana", "611111111")
	seedCustomer(t, db, zone, "Berta", "622222222")

	// Monday and Tuesday.
	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: template.ID,
		Weekdays:   "0,1",
		TimeOfDay:  "09:00",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	s := NewBroadcastScheduler(db, newStubGateway(), time.UTC)

	s.Tick(monday9)
	if got := countRecords(t, db); got != 2 {
		t.Fatalf("first firing should reach both customers, got %d records", got)
	}

	// Ana is deactivated between firings.
	if err := db.Model(&ana).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate customer: %v", err)
	}

	tuesday9 := monday9.AddDate(0, 0, 1)
	s.Tick(tuesday9)

	if got := countRecords(t, db); got != 3 {
		t.Fatalf("second firing should reach only the active customer, got %d total records", got)
	}
}

func TestMissingTemplateSkipsWithoutStamping(t *testing.T) {
	db := newTestDB(t)
	zone, _ := seedZoneTemplate(t, db, "Centro", "hola")
	seedCustomer(t, db, zone, "Ana", "611111111")

	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: uuid.New(), // never existed
		Weekdays:   "0",
		TimeOfDay:  "09:00",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	gateway := newStubGateway()
	s := NewBroadcastScheduler(db, gateway, time.UTC)
	s.Tick(monday9)

	if len(gateway.sent) != 0 {
		t.Fatalf("nothing should be sent when the template is missing, got %d", len(gateway.sent))
	}
	if got := countRecords(t, db); got != 0 {
		t.Fatalf("no records expected, got %d", got)
	}
	// Not stamped, so the rule is retried on later ticks.
	if reloaded := reloadRule(t, db, rule.ID); reloaded.LastRunDate != nil {
		t.Fatal("LastRunDate must stay nil when the run was skipped")
	}
}

func TestMissingZoneSkipsWithoutStamping(t *testing.T) {
	db := newTestDB(t)
	_, template := seedZoneTemplate(t, db, "Centro", "hola")

	rule := models.BroadcastRule{
		ZoneID:     uuid.New(),
		TemplateID: template.ID,
		Weekdays:   "0",
		TimeOfDay:  "09:00",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	s := NewBroadcastScheduler(db, newStubGateway(), time.UTC)
	s.Tick(monday9)

	if reloaded := reloadRule(t, db, rule.ID); reloaded.LastRunDate != nil {
		t.Fatal("LastRunDate must stay nil when the zone is gone")
	}
}

func TestBroadcastEndToEnd(t *testing.T) {
	db := newTestDB(t)
	zone, template := seedZoneTemplate(t, db, "Centro", "Hola {nombre_cliente}, pasamos por {zona}")
	ana := seedCustomer(t, db, zone, "Ana", "612345678")

	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: template.ID,
		Weekdays:   "0,2,4",
		TimeOfDay:  "09:00",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	gateway := newStubGateway()
	s := NewBroadcastScheduler(db, gateway, time.UTC)
	s.Tick(monday9)

	var record models.SendRecord
	if err := db.First(&record).Error; err != nil {
		t.Fatalf("expected one send record: %v", err)
	}
	if record.RenderedText != "Hola Ana, pasamos por Centro" {
		t.Fatalf("unexpected rendered text: %q", record.RenderedText)
	}
	if record.CustomerID != ana.ID {
		t.Fatalf("record attributed to wrong customer")
	}
	if !record.Success {
		t.Fatal("expected a successful send")
	}

	reloaded := reloadRule(t, db, rule.ID)
	if reloaded.LastRunDate == nil {
		t.Fatal("expected LastRunDate stamped")
	}
	y, m, d := reloaded.LastRunDate.Date()
	if y != 2026 || m != time.August || d != 31 {
		t.Fatalf("expected LastRunDate 2026-08-31, got %v", reloaded.LastRunDate)
	}

	// The outgoing message is mirrored into the inbox thread.
	var conversation models.Conversation
	if err := db.First(&conversation, "contact_number = ?", "34612345678").Error; err != nil {
		t.Fatalf("expected a conversation for the normalized number: %v", err)
	}
	var message models.ConversationMessage
	if err := db.First(&message, "conversation_id = ?", conversation.ID).Error; err != nil {
		t.Fatalf("expected a conversation message: %v", err)
	}
	if message.SenderType != models.SenderAgent {
		t.Fatalf("expected agent message, got %q", message.SenderType)
	}
	if message.MessageText != "Hola Ana, pasamos por Centro" {
		t.Fatalf("unexpected conversation text: %q", message.MessageText)
	}
}

// blockingGateway parks inside SendText until released, holding a run open
// across a simulated tick boundary.
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
	sends   int32
}

func (g *blockingGateway) SendText(phone, body string) SendResult {
	atomic.AddInt32(&g.sends, 1)
	g.entered <- struct{}{}
	<-g.release
	return SendResult{Success: true, ExternalID: "blocked"}
}

func (g *blockingGateway) CheckStatus() (bool, string) { return true, "stub" }

func TestOverlappingTicksFireRuleOnce(t *testing.T) {
	db := newTestDB(t)
	zone, template := seedZoneTemplate(t, db, "Centro", "Hola {nombre_cliente}")
	seedCustomer(t, db, zone, "Ana", "612345678")

	rule := models.BroadcastRule{
		ZoneID:     zone.ID,
		TemplateID: template.ID,
		Weekdays:   "0",
		TimeOfDay:  "09:00",
		Enabled:    true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	gateway := &blockingGateway{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := NewBroadcastScheduler(db, gateway, time.UTC)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Tick(monday9)
	}()

	// The first run is mid-send when the next tick of the same minute fires.
	<-gateway.entered
	go func() {
		defer wg.Done()
		s.Tick(monday9.Add(30 * time.Second))
	}()

	close(gateway.release)
	wg.Wait()

	if got := atomic.LoadInt32(&gateway.sends); got != 1 {
		t.Fatalf("rule fired %d times within one minute, want exactly 1", got)
	}
	if got := countRecords(t, db); got != 1 {
		t.Fatalf("expected exactly 1 send record, got %d", got)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	s := NewBroadcastScheduler(db, newStubGateway(), time.UTC)

	s.Start()
	first := s.cron
	s.Start()

	if s.cron != first {
		t.Fatal("second Start must not create a new loop")
	}
}
