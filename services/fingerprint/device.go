package fingerprint

import (
	"time"

	"github.com/mileusna/useragent"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRecord tracks one observed device per principal. It is informational
// bookkeeping for the customer's device list; the authoritative device
// binding lives on the session row.
type DeviceRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_principal_device,priority:1"`
	UserType    string    `json:"user_type" gorm:"size:20;not null;uniqueIndex:idx_principal_device,priority:2"`
	Fingerprint string    `json:"fingerprint" gorm:"size:64;not null;uniqueIndex:idx_principal_device,priority:3"`
	Browser     string    `json:"browser" gorm:"size:100"`
	OS          string    `json:"os" gorm:"size:100"`
	DeviceClass string    `json:"device_class" gorm:"size:20"`
	LastIP      string    `json:"last_ip" gorm:"size:45"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
}

func (DeviceRecord) TableName() string {
	return "device_records"
}

// UpsertDeviceRecord inserts or refreshes the device row for a principal,
// classifying the client from its user-agent string. Runs on the caller's
// db handle so it can join an enclosing transaction.
func UpsertDeviceRecord(db *gorm.DB, userID uint, userType, fp, ipAddress, userAgentString string) error {
	browser, os, class := classify(userAgentString)

	record := DeviceRecord{
		UserID:      userID,
		UserType:    userType,
		Fingerprint: fp,
		Browser:     browser,
		OS:          os,
		DeviceClass: class,
		LastIP:      ipAddress,
		LastSeen:    time.Now(),
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "user_type"}, {Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"browser", "os", "device_class", "last_ip", "last_seen",
		}),
	}).Create(&record).Error
}

// classify is best-effort user-agent sniffing, isolated here so the parsing
// library can be swapped without touching session logic.
func classify(userAgentString string) (browser, os, class string) {
	browser = "Unknown Browser"
	os = "Unknown OS"
	class = "Unknown"

	if userAgentString == "" {
		return browser, os, class
	}

	ua := useragent.Parse(userAgentString)

	if ua.Name != "" {
		browser = ua.Name
		if ua.Version != "" {
			browser = ua.Name + " " + ua.Version
		}
	}
	if ua.OS != "" {
		os = ua.OS
	}

	switch {
	case ua.Bot:
		class = "Bot"
	case ua.Mobile:
		class = "Mobile"
	case ua.Tablet:
		class = "Tablet"
	case ua.Desktop:
		class = "Desktop"
	}

	return browser, os, class
}
