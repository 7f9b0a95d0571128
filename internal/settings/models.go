package settings

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Section names one part of the settings aggregate. Every update targets
// exactly one section.
type Section string

const (
	SectionProfile       Section = "profile"
	SectionHealth        Section = "health"
	SectionNotifications Section = "notifications"
	SectionPrivacy       Section = "privacy"
	SectionDisplay       Section = "display"
	SectionLocation      Section = "location"
)

// ParseSection validates a section name from the wire.
func ParseSection(s string) (Section, error) {
	switch Section(s) {
	case SectionProfile, SectionHealth, SectionNotifications,
		SectionPrivacy, SectionDisplay, SectionLocation:
		return Section(s), nil
	}
	return "", fmt.Errorf("unknown settings section %q", s)
}

// UserSettings is the per-user preference aggregate returned by the API.
type UserSettings struct {
	UserID        uuid.UUID            `json:"user_id"`
	Profile       ProfileSettings      `json:"profile"`
	Health        HealthSettings       `json:"health"`
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
	Display       DisplaySettings      `json:"display"`
	Location      LocationSettings     `json:"location"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// ProfileSettings mirrors the user row fields shown on the profile tab.
type ProfileSettings struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone"`
	ProfilePicture string `json:"profilePicture"`
	EmailVerified  bool   `json:"emailVerified"`
}

// HealthSettings holds the health profile plus its emergency contacts.
type HealthSettings struct {
	Age               int                `json:"age" validate:"min=1,max=120"`
	ActivityLevel     string             `json:"activityLevel" validate:"oneof=sedentary light moderate active very_active"`
	Conditions        map[string]bool    `json:"conditions"`
	Medications       string             `json:"medications"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts" validate:"dive"`
}

// EmergencyContact is one entry in the ordered contact list.
type EmergencyContact struct {
	ID       uuid.UUID `json:"-" db:"id"`
	UserID   uuid.UUID `json:"-" db:"user_id"`
	Name     string    `json:"name" db:"name" validate:"required"`
	Phone    string    `json:"phone" db:"phone" validate:"required"`
	Relation string    `json:"relation" db:"relation"`
	Position int       `json:"-" db:"position"`
}

type NotificationSettings struct {
	Email           bool   `json:"email"`
	Push            bool   `json:"push"`
	SMS             bool   `json:"sms"`
	Alerts          bool   `json:"alerts"`
	Browser         bool   `json:"browser"`
	Sound           bool   `json:"sound"`
	Vibration       bool   `json:"vibration"`
	Frequency       string `json:"frequency" validate:"oneof=immediate hourly daily weekly"`
	QuietHoursStart string `json:"quietHoursStart" validate:"datetime=15:04"`
	QuietHoursEnd   string `json:"quietHoursEnd" validate:"datetime=15:04"`
}

type PrivacySettings struct {
	LocationTracking bool   `json:"locationTracking"`
	Analytics        bool   `json:"analytics"`
	DataSharing      bool   `json:"dataSharing"`
	AutoRefresh      bool   `json:"autoRefresh"`
	DataRetention    string `json:"dataRetention" validate:"oneof=30days 90days 1year forever"`
	RefreshInterval  int    `json:"refreshInterval" validate:"min=1,max=60"`
}

type DisplaySettings struct {
	Theme           string `json:"theme" validate:"oneof=light dark auto"`
	Language        string `json:"language" validate:"oneof=en es fr de pt"`
	TemperatureUnit string `json:"temperatureUnit" validate:"oneof=celsius fahrenheit"`
	DistanceUnit    string `json:"distanceUnit" validate:"oneof=km miles"`
	DateFormat      string `json:"dateFormat" validate:"oneof=MM/DD/YYYY DD/MM/YYYY YYYY-MM-DD"`
}

// Location is a named point on the map; coordinates are optional.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng     *float64 `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
}

type LocationSettings struct {
	DefaultLocation  Location `json:"defaultLocation"`
	AutoDetect       bool     `json:"autoDetect"`
	GPSAccuracy      string   `json:"gpsAccuracy" validate:"oneof=high medium low"`
	SaveHistory      bool     `json:"saveHistory"`
	HistoryRetention string   `json:"historyRetention" validate:"oneof=30days 90days 1year"`
}

// AlertThresholds holds per-pollutant warning levels used by the dashboard.
type AlertThresholds struct {
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	PM25       float64   `json:"pm25" db:"pm25"`
	PM10       float64   `json:"pm10" db:"pm10"`
	O3         float64   `json:"o3" db:"o3"`
	NO2        float64   `json:"no2" db:"no2"`
	SO2        float64   `json:"so2" db:"so2"`
	CO         float64   `json:"co" db:"co"`
	AQIWarning int       `json:"aqiWarning" db:"aqi_warning"`
	AQIDanger  int       `json:"aqiDanger" db:"aqi_danger"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// HealthProfile is the persisted half of HealthSettings; contacts live in
// their own table.
type HealthProfile struct {
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	Age           int           `json:"age" db:"age"`
	ActivityLevel string        `json:"activityLevel" db:"activity_level"`
	Conditions    ConditionsMap `json:"conditions" db:"conditions"`
	Medications   string        `json:"medications" db:"medications"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// ConditionsMap is a named-condition -> enabled map stored as JSONB.
type ConditionsMap map[string]bool

// Value implements driver.Valuer
func (m ConditionsMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *ConditionsMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("conditions: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// StoredSettings is the user_settings row; the four pure-preference sections
// are JSONB columns. Profile fields live on users, health in its own tables.
type StoredSettings struct {
	UserID        uuid.UUID            `json:"user_id" db:"user_id"`
	Notifications NotificationSettings `json:"notifications" db:"notifications"`
	Privacy       PrivacySettings      `json:"privacy" db:"privacy"`
	Display       DisplaySettings      `json:"display" db:"display"`
	Location      LocationSettings     `json:"location" db:"location"`
	CreatedAt     time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" db:"updated_at"`
}

func (s NotificationSettings) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *NotificationSettings) Scan(v interface{}) error    { return scanJSON(v, s) }

func (s PrivacySettings) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *PrivacySettings) Scan(v interface{}) error    { return scanJSON(v, s) }

func (s DisplaySettings) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *DisplaySettings) Scan(v interface{}) error    { return scanJSON(v, s) }

func (s LocationSettings) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *LocationSettings) Scan(v interface{}) error    { return scanJSON(v, s) }

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("jsonb scan: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, dest)
}

// UpdateRequest is the PUT /settings body: one section name and a partial
// patch of that section's fields.
type UpdateRequest struct {
	Type string          `json:"type" binding:"required"`
	Data json.RawMessage `json:"data" binding:"required"`
}

// Patch types carry pointer fields so an omitted field leaves the stored
// value unchanged.

type ProfilePatch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

type HealthPatch struct {
	Age           *int            `json:"age,omitempty"`
	ActivityLevel *string         `json:"activityLevel,omitempty"`
	Conditions    map[string]bool `json:"conditions,omitempty"`
	Medications   *string         `json:"medications,omitempty"`
	// A nil slice leaves contacts untouched; an empty slice clears them.
	EmergencyContacts []EmergencyContact `json:"emergencyContacts,omitempty"`
}

type NotificationsPatch struct {
	Email           *bool   `json:"email,omitempty"`
	Push            *bool   `json:"push,omitempty"`
	SMS             *bool   `json:"sms,omitempty"`
	Alerts          *bool   `json:"alerts,omitempty"`
	Browser         *bool   `json:"browser,omitempty"`
	Sound           *bool   `json:"sound,omitempty"`
	Vibration       *bool   `json:"vibration,omitempty"`
	Frequency       *string `json:"frequency,omitempty"`
	QuietHoursStart *string `json:"quietHoursStart,omitempty"`
	QuietHoursEnd   *string `json:"quietHoursEnd,omitempty"`
}

type PrivacyPatch struct {
	LocationTracking *bool   `json:"locationTracking,omitempty"`
	Analytics        *bool   `json:"analytics,omitempty"`
	DataSharing      *bool   `json:"dataSharing,omitempty"`
	AutoRefresh      *bool   `json:"autoRefresh,omitempty"`
	DataRetention    *string `json:"dataRetention,omitempty"`
	RefreshInterval  *int    `json:"refreshInterval,omitempty"`
}

type DisplayPatch struct {
	Theme           *string `json:"theme,omitempty"`
	Language        *string `json:"language,omitempty"`
	TemperatureUnit *string `json:"temperatureUnit,omitempty"`
	DistanceUnit    *string `json:"distanceUnit,omitempty"`
	DateFormat      *string `json:"dateFormat,omitempty"`
}

type LocationPatch struct {
	DefaultLocation  *Location `json:"defaultLocation,omitempty"`
	AutoDetect       *bool     `json:"autoDetect,omitempty"`
	GPSAccuracy      *string   `json:"gpsAccuracy,omitempty"`
	SaveHistory      *bool     `json:"saveHistory,omitempty"`
	HistoryRetention *string   `json:"historyRetention,omitempty"`
}

// DefaultStoredSettings returns the preference row a new user starts with.
func DefaultStoredSettings(userID uuid.UUID) *StoredSettings {
	return &StoredSettings{
		UserID: userID,
		Notifications: NotificationSettings{
			Email:           true,
			Push:            true,
			Alerts:          true,
			Browser:         true,
			Sound:           true,
			Frequency:       "immediate",
			QuietHoursStart: "22:00",
			QuietHoursEnd:   "07:00",
		},
		Privacy: PrivacySettings{
			LocationTracking: true,
			AutoRefresh:      true,
			DataRetention:    "90days",
			RefreshInterval:  15,
		},
		Display: DisplaySettings{
			Theme:           "light",
			Language:        "en",
			TemperatureUnit: "celsius",
			DistanceUnit:    "km",
			DateFormat:      "MM/DD/YYYY",
		},
		Location: LocationSettings{
			AutoDetect:       true,
			GPSAccuracy:      "high",
			SaveHistory:      true,
			HistoryRetention: "90days",
		},
	}
}

// DefaultHealthProfile returns the health row a new user starts with.
func DefaultHealthProfile(userID uuid.UUID) *HealthProfile {
	return &HealthProfile{
		UserID:        userID,
		Age:           30,
		ActivityLevel: "moderate",
		Conditions:    ConditionsMap{},
	}
}

// DefaultThresholds returns starting alert levels close to WHO guidance.
func DefaultThresholds(userID uuid.UUID) *AlertThresholds {
	return &AlertThresholds{
		UserID:     userID,
		PM25:       35,
		PM10:       50,
		O3:         100,
		NO2:        100,
		SO2:        75,
		CO:         9,
		AQIWarning: 100,
		AQIDanger:  150,
	}
}
