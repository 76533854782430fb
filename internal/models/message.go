package models

// Message represents one chat message observed through the webhook.
// The ID is the platform-assigned message identifier, not a local
// autoincrement; it is globally unique and monotonically increasing
// within the source, so it doubles as the ingestion cursor.
type Message struct {
	ID        int64 `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ChatID    int64 `json:"chat_id" gorm:"not null;index:idx_messages_chat_rating,priority:1"`
	Rating    int64 `json:"rating" gorm:"not null;default:0;index:idx_messages_chat_rating,priority:2"`
	Timestamp int64 `json:"timestamp" gorm:"not null"`
}

// TableName keeps the table name aligned with the original schema.
func (Message) TableName() string {
	return "messages"
}
