// Package models defines the persistent and configuration data structures.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// TierConfig describes one model tier: the primary provider/model choice and
// an ordered fallback chain. The structure is recursive; validated configs are
// treated as read-only afterwards.
type TierConfig struct {
	Provider string        `json:"provider" yaml:"provider"`
	Model    string        `json:"model" yaml:"model"`
	Fallback []*TierConfig `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// ProviderConfig holds the upstream connection settings for one provider.
type ProviderConfig struct {
	Name            string `json:"name" yaml:"name"`
	Host            string `json:"host" yaml:"host"`
	Port            int    `json:"port,omitempty" yaml:"port,omitempty"`
	AuthToken       string `json:"auth_token,omitempty" yaml:"auth_token,omitempty"`
	AllowSelfSigned bool   `json:"allow_self_signed,omitempty" yaml:"allow_self_signed,omitempty"`
}

// TierFile is the on-disk tier configuration document.
type TierFile struct {
	Providers []ProviderConfig       `json:"providers" yaml:"providers"`
	Tiers     map[string]*TierConfig `json:"tiers" yaml:"tiers"`
}

// RequestLog stores one proxied request for the admin log view.
type RequestLog struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	Timestamp  time.Time      `gorm:"index;not null" json:"timestamp"`
	Tier       string         `gorm:"size:64;index" json:"tier"`
	Provider   string         `gorm:"size:128" json:"provider"`
	Model      string         `gorm:"size:255" json:"model"`
	Method     string         `gorm:"size:16" json:"method"`
	Path       string         `gorm:"size:1024" json:"path"`
	StatusCode int            `json:"status_code"`
	IsSuccess  bool           `gorm:"index" json:"is_success"`
	IsStream   bool           `json:"is_stream"`
	DurationMs int64          `json:"duration_ms"`
	SourceIP   string         `gorm:"size:64" json:"source_ip"`
	ErrorMsg   string         `gorm:"type:text" json:"error_message,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
}

// TableName sets the table name for RequestLog.
func (RequestLog) TableName() string {
	return "request_logs"
}
