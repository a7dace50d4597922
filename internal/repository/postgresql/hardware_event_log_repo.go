package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

type pgHardwareEventLogRepository struct {
	db *sql.DB
}

func NewPgHardwareEventLogRepository(db *sql.DB) repository.HardwareEventLogRepository {
	return &pgHardwareEventLogRepository{db: db}
}

func (r *pgHardwareEventLogRepository) Create(ctx context.Context, entry *domain.HardwareEventLog) error {
	query := `INSERT INTO hardware_event_logs
	           (received_at, device_id, mqtt_topic, message_type, payload, processed_status, processing_notes)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           RETURNING id`
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, query,
		entry.ReceivedAt, entry.DeviceID, entry.MqttTopic, entry.MessageType,
		[]byte(entry.Payload), entry.ProcessedStatus, entry.ProcessingNotes,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("HardwareEventLogRepository.Create: %w", err)
	}
	return nil
}
