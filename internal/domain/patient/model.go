package patient

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/nutriplan/internal/clinical"
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialised as YYYY-MM-DD. RFC 3339 timestamps are
// accepted on input and truncated to the date.
type Date struct {
	time.Time
}

func NewDate(y int, m time.Month, d int) *Date {
	return &Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
}

// Patient maps to the patient table. ClinicalData is write-only: it carries
// the lenient clinical record sent by clients, which the service parses into
// Clinical.
type Patient struct {
	ID           uuid.UUID         `json:"id"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	Email        *string           `json:"email,omitempty"`
	Phone        *string           `json:"phone,omitempty"`
	BirthDate    *Date             `json:"birth_date,omitempty"`
	Sex          clinical.Sex      `json:"sex,omitempty"`
	Active       bool              `json:"active"`
	Clinical     clinical.Snapshot `json:"clinical"`
	ClinicalData json.RawMessage   `json:"clinical_data,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Snapshot returns the clinical snapshot with the demographic fields filled
// in: age from the birth date and sex from the patient record, when the
// clinical record itself has none.
func (p *Patient) Snapshot(now time.Time) clinical.Snapshot {
	s := p.Clinical
	if s.Age == nil && p.BirthDate != nil && !p.BirthDate.IsZero() {
		s.Age = clinical.Int(clinical.AgeAt(p.BirthDate.Time, now))
	}
	if s.Sex == clinical.SexUnspecified {
		s.Sex = p.Sex
	}
	return s
}

// DateTime converts an optional date for storage drivers that take time.Time.
func DateTime(d *Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func DateOf(t *time.Time) *Date {
	if t == nil || t.IsZero() {
		return nil
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// DateString formats an optional date as YYYY-MM-DD for text columns.
func DateString(d *Date) *string {
	if d == nil || d.IsZero() {
		return nil
	}
	s := d.Format(dateLayout)
	return &s
}

// ParseDateString is the inverse of DateString; empty input yields nil.
func ParseDateString(s *string) (*Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &Date{t}, nil
}
