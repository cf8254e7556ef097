package classifier

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var datePattern = regexp.MustCompile(`(\d{4})\s*[-/年.]\s*(\d{1,2})\s*[-/月.]\s*(\d{1,2})\s*日?(?:\s*[(（][^)）]{1,3}[)）])?(?:\s*(\d{1,2})\s*[:時]\s*(\d{2}))?`)

// ExtractDate returns the first valid calendar date in body as "2006-01-02", with
// " 15:04" appended when a time follows it. It returns "" when there is none.
func ExtractDate(body string) string {
	for _, m := range datePattern.FindAllStringSubmatch(body, -1) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if year < 1990 || year > 2100 || !validDate(year, month, day) {
			continue
		}

		out := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		if m[4] != "" {
			hour, _ := strconv.Atoi(m[4])
			minute, _ := strconv.Atoi(m[5])
			if hour < 24 && minute < 60 {
				out += fmt.Sprintf(" %02d:%02d", hour, minute)
			}
		}
		return out
	}
	return ""
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day
}
