package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestProcessedMessage_Migration_PrimaryKeyIsUnique(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&ProcessedMessage{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasTable("processed_messages") {
		t.Fatalf("expected table processed_messages")
	}

	now := time.Now().UTC()
	rec := &ProcessedMessage{MessageID: "wamid.1", SenderID: "+551199999", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := &ProcessedMessage{MessageID: "wamid.1", SenderID: "+551199999", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected primary key violation on duplicate message id")
	}

	var got ProcessedMessage
	if err := db.First(&got, "message_id = ?", "wamid.1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be filled by autoCreateTime")
	}
}
