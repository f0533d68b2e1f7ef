package util

import (
	"fmt"
	"time"
)

const DateLayout = "02.01.2006"

// DateToEpoch converts dd.mm.yyyy to the epoch seconds of midnight UTC of that day.
func DateToEpoch(date string) (int64, error) {
	t, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("cannot parse date %q: %w", date, err)
	}

	return t.Unix(), nil
}

func EpochToDate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(DateLayout)
}
