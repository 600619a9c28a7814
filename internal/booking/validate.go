package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alisproject111/tripeasy-client/internal/models"
)

const (
	// MinTravelers and MaxTravelers bound the traveler count selector.
	MinTravelers = 1
	MaxTravelers = 20
)

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
	digitPattern = regexp.MustCompile(`^\d*$`)
)

// Validate runs required-field checks for the lead traveler and every
// additional traveler slot. An empty map means the draft is valid.
func Validate(draft *models.BookingDraft) *ErrorMap {
	errs := NewErrorMap()

	if strings.TrimSpace(draft.FullName) == "" {
		errs.Add("fullName", "Full name is required")
	}

	if strings.TrimSpace(draft.Email) == "" {
		errs.Add("email", "Email is required")
	} else if !emailPattern.MatchString(draft.Email) {
		errs.Add("email", "Email is invalid")
	}

	if strings.TrimSpace(draft.Phone) == "" {
		errs.Add("phone", "Phone number is required")
	} else if !phonePattern.MatchString(draft.Phone) || draft.Phone[0] == '0' {
		errs.Add("phone", "Phone must be 10 digits")
	}

	if draft.Gender == "" {
		errs.Add("gender", "Gender is required")
	}

	if draft.Age == "" {
		errs.Add("age", "Age is required")
	} else if !validAge(draft.Age) {
		errs.Add("age", "Please enter a valid age")
	}

	if draft.Travelers < MinTravelers {
		errs.Add("travelers", "At least 1 traveler is required")
	}
	if draft.Travelers > MaxTravelers {
		errs.Add("travelers", "Maximum 20 travelers allowed")
	}

	if draft.TravelDate == "" {
		errs.Add("travelDate", "Travel date is required")
	}

	if !draft.TermsAccepted {
		errs.Add("termsAccepted", "You must accept the terms and conditions")
	}

	for i, traveler := range draft.AdditionalTravelers {
		if strings.TrimSpace(traveler.FullName) == "" {
			errs.Add(travelerKey(i, "fullName"), "Full name is required")
		}
		if traveler.Gender == "" {
			errs.Add(travelerKey(i, "gender"), "Gender is required")
		}
		if traveler.Age == "" {
			errs.Add(travelerKey(i, "age"), "Age is required")
		} else if !validAge(traveler.Age) {
			errs.Add(travelerKey(i, "age"), "Please enter a valid age")
		}
	}

	return errs
}

func validAge(age string) bool {
	n, err := strconv.Atoi(age)
	if err != nil {
		return false
	}
	return n > 0 && n <= 120
}

func travelerKey(index int, field string) string {
	return fmt.Sprintf("traveler_%d_%s", index, field)
}
