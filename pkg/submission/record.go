package submission

import (
	"errors"
	"strings"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
)

// ErrNotFound is returned by backends when an application id is unknown.
var ErrNotFound = errors.New("submission: application not found")

// PaymentPaid is the payment status that freezes program and academic year.
const PaymentPaid = "Paid"

// Record is an application as stored by the API.
type Record struct {
	ID                string                    `json:"_id,omitempty"`
	ApplicationID     string                    `json:"applicationId,omitempty"`
	Program           string                    `json:"program"`
	AcademicYear      string                    `json:"academicYear"`
	ApplicationSource catalog.ApplicationSource `json:"applicationSource,omitempty"`
	PersonalDetails   []SectionPayload          `json:"personalDetails"`
	EducationDetails  []SectionPayload          `json:"educationDetails"`
	PaymentStatus     string                    `json:"paymentStatus,omitempty"`
	FormStatus        string                    `json:"formStatus,omitempty"`
}

// Identifier returns the application id, whichever key the API used.
func (r Record) Identifier() string {
	if r.ApplicationID != "" {
		return r.ApplicationID
	}
	return r.ID
}

// Paid reports whether the application fee has been paid.
func (r Record) Paid() bool {
	return strings.EqualFold(strings.TrimSpace(r.PaymentStatus), PaymentPaid)
}

// Values flattens the fields of both groups. Later sections win on name
// collisions.
func (r Record) Values() map[string]state.Value {
	out := make(map[string]state.Value)
	for _, group := range [][]SectionPayload{r.PersonalDetails, r.EducationDetails} {
		for _, section := range group {
			for name, value := range section.Fields {
				out[name] = value
			}
		}
	}
	return out
}

// Result is the API's answer to a successful save.
type Result struct {
	ApplicationID string
	Message       string
}
