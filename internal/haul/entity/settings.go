package entity

import "time"

// Setting is one durable key-value row. Values are JSON-encoded so lock
// structs and plain strings share one table. Every read goes to the table;
// nothing here is cached per caller.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;size:128"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "haul_settings"
}

// FormLock is the global gate on new submissions. Legacy blunt instrument:
// it sits underneath the per-tab locks and blocks every tab at once.
type FormLock struct {
	IsLocked  bool      `json:"is_locked"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TabLock gates one tab independently of the global form lock.
type TabLock struct {
	TabName   string    `json:"tab_name"`
	IsLocked  bool      `json:"is_locked"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}
