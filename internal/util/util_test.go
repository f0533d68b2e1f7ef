package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateToEpoch(t *testing.T) {
	testCases := []struct {
		name        string
		date        string
		expected    int64
		expectError bool
	}{
		{name: "Epoch start", date: "01.01.1970", expected: 0},
		{name: "Regular date", date: "05.03.2023", expected: time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC).Unix()},
		{name: "Leap day", date: "29.02.2024", expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC).Unix()},
		{name: "Impossible day", date: "31.02.2023", expectError: true},
		{name: "Empty", date: "", expectError: true},
		{name: "Wrong layout", date: "2023-03-05", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			epoch, err := DateToEpoch(tc.date)
			if tc.expectError {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expected, epoch)
		})
	}
}

func TestDateRoundTrip(t *testing.T) {
	start := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 17) {
		date := d.Format(DateLayout)

		epoch, err := DateToEpoch(date)
		require.NoError(t, err)
		require.Equal(t, date, EpochToDate(epoch))
	}
}
