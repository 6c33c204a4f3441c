package report

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportType is the closed set of accepted report categories.
type ReportType string

const (
	TypeCBC        ReportType = "CBC"
	TypeXRay       ReportType = "X-Ray"
	TypeUltrasound ReportType = "Ultrasound"
	TypeBloodTest  ReportType = "Blood Test"
	TypeOther      ReportType = "Other"
)

// Types lists every valid report type, in the order shown to users.
var Types = []ReportType{TypeCBC, TypeXRay, TypeUltrasound, TypeBloodTest, TypeOther}

func ValidType(t ReportType) bool {
	for _, valid := range Types {
		if t == valid {
			return true
		}
	}
	return false
}

// TypesList renders the valid types for error messages.
func TypesList() string {
	parts := make([]string, len(Types))
	for i, t := range Types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// Report maps to the reports table. A report has either an uploaded file or
// manually entered values; both carry the AI analysis fields.
type Report struct {
	ID              uuid.UUID              `db:"id" json:"id"`
	UserID          uuid.UUID              `db:"user_id" json:"userId"`
	ReportType      ReportType             `db:"report_type" json:"reportType"`
	Date            time.Time              `db:"date" json:"date"`
	FileURL         *string                `db:"file_url" json:"fileUrl,omitempty"`
	ManualData      map[string]interface{} `db:"manual_data" json:"manualData,omitempty"`
	AISummary       *string                `db:"ai_summary" json:"aiSummary,omitempty"`
	Abnormalities   []string               `db:"abnormalities" json:"abnormalities"`
	DoctorQuestions []string               `db:"doctor_questions" json:"doctorQuestions"`
	CreatedAt       time.Time              `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time              `db:"updated_at" json:"updatedAt"`
}

// TimelineEntry is the trimmed projection returned by the timeline endpoint.
type TimelineEntry struct {
	ID            uuid.UUID  `json:"id"`
	ReportType    ReportType `json:"reportType"`
	Date          time.Time  `json:"date"`
	AISummary     *string    `json:"aiSummary,omitempty"`
	Abnormalities []string   `json:"abnormalities"`
	CreatedAt     time.Time  `json:"createdAt"`
}
