package detect

import (
	"regexp"

	"github.com/jgivc/rinupdate/internal/entity"
	"github.com/jgivc/rinupdate/internal/util"
)

var (
	versionRegexp = regexp.MustCompile(`(?P<title>[[:ascii:]]+) \| (?P<date>[[:digit:]]{2}\.[[:digit:]]{2}\.[[:digit:]]{4})`)
	titleIdx      = versionRegexp.SubexpIndex("title")
	dateIdx       = versionRegexp.SubexpIndex("date")
)

// ParseVersion reads "<title> | <dd.mm.yyyy>" into a Version. It reports false
// when the text does not follow the format or the date is not a calendar date.
func ParseVersion(text string) (entity.Version, bool) {
	m := versionRegexp.FindStringSubmatch(text)
	if m == nil {
		return entity.Version{}, false
	}

	epoch, err := util.DateToEpoch(m[dateIdx])
	if err != nil {
		return entity.Version{}, false
	}

	return entity.Version{Title: m[titleIdx], LastUpdate: epoch}, true
}

// Detect returns the first candidate, in list order, whose title equals
// current.Title and whose instant differs from current.LastUpdate.
// Candidates that do not parse are skipped.
func Detect(current entity.Version, candidates []entity.LinkText) (*entity.Update, bool) {
	for _, c := range candidates {
		v, ok := ParseVersion(c.Text)
		if !ok {
			continue
		}

		if v.Title == current.Title && v.LastUpdate != current.LastUpdate {
			return &entity.Update{From: current, To: v, Link: c}, true
		}
	}

	return nil, false
}

// FormatVersion renders a version the way download links are labelled.
func FormatVersion(v entity.Version) string {
	return v.Title + " | " + util.EpochToDate(v.LastUpdate)
}
