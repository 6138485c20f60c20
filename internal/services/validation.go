package services

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// DefaultInstitutionalDomain is the email suffix required at registration.
const DefaultInstitutionalDomain = "@uleam.edu.ec"

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern    = regexp.MustCompile(`^(\+593|0)?9\d{8}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "\t", "", "-", "", "(", "", ")", "")
)

// IsValidEmail checks the local@domain.tld shape.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsInstitutionalEmail checks the shape plus the domain suffix, case-insensitively.
func IsInstitutionalEmail(email, domain string) bool {
	if domain == "" {
		domain = DefaultInstitutionalDomain
	}
	return IsValidEmail(email) && strings.HasSuffix(strings.ToLower(email), strings.ToLower(domain))
}

// IsValidNationalID validates an Ecuadorian cédula: 10 digits, province 01-24, third
// digit below 6, and the modulo-10 check digit over the first nine digits.
func IsValidNationalID(id string) bool {
	if len(id) != 10 {
		return false
	}
	digits := make([]int, 10)
	for i, r := range id {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}
	province := digits[0]*10 + digits[1]
	if province < 1 || province > 24 {
		return false
	}
	if digits[2] >= 6 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		v := digits[i]
		if i%2 == 0 {
			v *= 2
			if v > 9 {
				v -= 9
			}
		}
		sum += v
	}
	return (10-sum%10)%10 == digits[9]
}

// IsValidPhone accepts mobile numbers like 0991234567 or +593991234567, ignoring
// spaces, hyphens and parentheses.
func IsValidPhone(phone string) bool {
	if phone == "" {
		return false
	}
	return phonePattern.MatchString(phoneSeparators.Replace(phone))
}

// IsStrongPassword requires 8+ characters with upper, lower and digit.
func IsStrongPassword(p string) bool {
	if len([]rune(p)) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// IsValidURL accepts absolute URLs with a scheme and host.
func IsValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// AgeOn returns completed years between birth and now.
func AgeOn(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// ParseDate reads the yyyy-mm-dd form used by date inputs.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}
