package services

import (
	"fmt"

	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
)

// Notifier delivers lifecycle messages. Delivery is best-effort:
// implementations must never propagate failures back into the state
// transition that triggered them.
type Notifier interface {
	Notify(recipientID, ntype, title, message, entityType, entityID string)
}

// DBNotifier writes notifications to storage for polling clients.
type DBNotifier struct {
	db database.DatabaseInterface
}

func NewDBNotifier(db database.DatabaseInterface) *DBNotifier {
	return &DBNotifier{db: db}
}

func (n *DBNotifier) Notify(recipientID, ntype, title, message, entityType, entityID string) {
	err := n.db.CreateNotification(&models.Notification{
		UserID:            recipientID,
		Type:              ntype,
		Title:             title,
		Message:           message,
		RelatedEntityType: entityType,
		RelatedEntityID:   entityID,
	})
	if err != nil {
		fmt.Printf("⚠️ Notification delivery failed (type=%s user=%s): %v\n", ntype, recipientID, err)
	}
}
