package outpass

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// SubmitInput carries the raw submission fields as the API receives them.
type SubmitInput struct {
	OutDate            string `json:"out_date" binding:"required"`
	OutTime            string `json:"out_time" binding:"required"`
	ExpectedReturnTime string `json:"expected_return_time" binding:"required"`
	Reason             string `json:"reason" binding:"required"`
	Destination        string `json:"destination"`
}

// parseSchedule validates and combines the submission fields into concrete
// departure and return timestamps on the same day.
func parseSchedule(in SubmitInput, now time.Time, window time.Duration) (departAt, returnAt time.Time, err error) {
	day, err := time.ParseInLocation(dateLayout, in.OutDate, now.Location())
	if err != nil {
		return departAt, returnAt, fmt.Errorf("%w: invalid out_date %q", ErrValidation, in.OutDate)
	}

	outClock, err := time.Parse(timeLayout, in.OutTime)
	if err != nil {
		return departAt, returnAt, fmt.Errorf("%w: invalid out_time %q", ErrValidation, in.OutTime)
	}

	returnClock, err := time.Parse(timeLayout, in.ExpectedReturnTime)
	if err != nil {
		return departAt, returnAt, fmt.Errorf("%w: invalid expected_return_time %q", ErrValidation, in.ExpectedReturnTime)
	}

	departAt = day.Add(time.Duration(outClock.Hour())*time.Hour + time.Duration(outClock.Minute())*time.Minute)
	returnAt = day.Add(time.Duration(returnClock.Hour())*time.Hour + time.Duration(returnClock.Minute())*time.Minute)

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return departAt, returnAt, fmt.Errorf("%w: out_date cannot be in the past", ErrValidation)
	}
	if day.After(now.Add(window)) {
		return departAt, returnAt, fmt.Errorf("%w: out_date cannot be more than %d days in the future",
			ErrValidation, int(window.Hours()/24))
	}
	if !returnAt.After(departAt) {
		return departAt, returnAt, fmt.Errorf("%w: expected_return_time must be after out_time", ErrValidation)
	}

	return departAt, returnAt, nil
}

func validateContent(in SubmitInput) error {
	if strings.TrimSpace(in.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	return nil
}
