package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AccountStatus represents the approval status of a user account
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusApproved AccountStatus = "approved"
)

// UserProfile represents a user's account status and personalization data
type UserProfile struct {
	UserID      int           `json:"userId"`
	Status      AccountStatus `json:"status"`
	ProfileData ProfileData   `json:"profileData,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ProfileData maps personalization field keys to user supplied values.
// A value is a string, a number or a list of strings (multiselect).
type ProfileData map[string]any

// Lookup returns the value stored under key rendered as text.
// Empty strings, empty lists and nil values are reported as absent.
func (p ProfileData) Lookup(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	raw, ok := p[key]
	if !ok || raw == nil {
		return "", false
	}

	var text string
	switch v := raw.(type) {
	case string:
		text = strings.TrimSpace(v)
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		text = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		text = strconv.Itoa(v)
	case int64:
		text = strconv.FormatInt(v, 10)
	case json.Number:
		text = v.String()
	case bool:
		text = strconv.FormatBool(v)
	case []string:
		text = joinNonEmpty(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			items = append(items, fmt.Sprint(item))
		}
		text = joinNonEmpty(items)
	default:
		text = fmt.Sprint(v)
	}

	if text == "" {
		return "", false
	}
	return text, true
}

// Has reports whether a non-empty value is stored under key
func (p ProfileData) Has(key string) bool {
	_, ok := p.Lookup(key)
	return ok
}

// Merge returns a new ProfileData where fields of update overlay the receiver.
// Fields absent from update keep their previous value.
func (p ProfileData) Merge(update ProfileData) ProfileData {
	merged := make(ProfileData, len(p)+len(update))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}

// Value implements driver.Valuer so ProfileData can be stored in a JSON column
func (p ProfileData) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile data: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON columns
func (p *ProfileData) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported profile data type %T", src)
	}

	if len(b) == 0 || string(b) == "null" {
		*p = nil
		return nil
	}

	data := ProfileData{}
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("failed to unmarshal profile data: %w", err)
	}
	*p = data
	return nil
}

func joinNonEmpty(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ", ")
}
