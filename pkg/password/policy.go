package password

import (
	"strings"
)

const (
	MinLength = 8
	MaxLength = 128
)

// Result is the outcome of validating a candidate password. Score is a UI
// feedback heuristic only; Valid is the pass/fail verdict.
type Result struct {
	Valid       bool     `json:"valid"`
	Score       int      `json:"score"`
	Errors      []string `json:"errors"`
	Suggestions []string `json:"suggestions"`
}

// commonPasswords is a fixed deny-list. A trailing-digits variant of any
// entry is rejected too ("password123" counts as "password").
var commonPasswords = map[string]bool{
	"password": true, "passwort": true, "qwerty": true, "admin": true,
	"welcome": true, "login": true, "letmein": true, "monkey": true,
	"dragon": true, "master": true, "iloveyou": true, "sunshine": true,
	"princess": true, "football": true, "baseball": true, "shadow": true,
	"superman": true, "trustno1": true, "123456": true, "12345678": true,
	"123456789": true, "1234567890": true, "abc123": true, "password1": true,
}

// sequentialPatterns are keyboard, alphabet and digit runs that make a
// password trivially guessable regardless of its other content.
var sequentialPatterns = []string{
	"qwerty", "asdfgh", "zxcvbn", "qwertz", "azerty",
	"abcdef", "bcdefg", "cdefgh",
	"012345", "123456", "234567", "345678", "456789", "567890",
	"987654", "876543", "765432", "654321", "543210",
}

// Validate checks a candidate password against the policy. identityHint is
// the login identity (usually an email); its local part must not appear in
// the password when it is long enough to be meaningful.
func Validate(password, identityHint string) Result {
	res := Result{Valid: true}
	lower := strings.ToLower(password)

	if len(password) < MinLength {
		res.addError("password must be at least 8 characters long")
	}
	if len(password) > MaxLength {
		res.addError("password must not exceed 128 characters")
	}

	hasLower, hasUpper, hasDigit, hasSpecial := classify(password)

	if !hasLower {
		res.addError("password must contain at least one lowercase letter")
	}
	if !hasDigit {
		res.addError("password must contain at least one digit")
	}
	if isCommonPassword(lower) {
		res.addError("password is too common, please choose a more secure password")
	}
	if containsSequentialPattern(lower) {
		res.addError("password contains a sequential character pattern")
	}
	if local := localPart(identityHint); len(local) > 3 && strings.Contains(lower, strings.ToLower(local)) {
		res.addError("password must not contain your email or username")
	}

	if !hasUpper {
		res.Suggestions = append(res.Suggestions, "add an uppercase letter")
	}
	if !hasSpecial {
		res.Suggestions = append(res.Suggestions, "add a special character")
	}
	if hasRepeatedRun(password, 3) {
		res.Suggestions = append(res.Suggestions, "avoid repeating the same character")
	}
	if lowDiversity(password) {
		res.Suggestions = append(res.Suggestions, "use a wider variety of characters")
	}

	res.Score = score(password, hasLower, hasUpper, hasDigit, hasSpecial)
	return res
}

func (r *Result) addError(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

func classify(password string) (hasLower, hasUpper, hasDigit, hasSpecial bool) {
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	return
}

func isCommonPassword(lower string) bool {
	if commonPasswords[lower] {
		return true
	}
	base := strings.TrimRight(lower, "0123456789")
	return base != lower && base != "" && commonPasswords[base]
}

func containsSequentialPattern(lower string) bool {
	for _, p := range sequentialPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// localPart extracts the part of an email before '@'; for plain usernames
// it returns the hint unchanged.
func localPart(identityHint string) string {
	if identityHint == "" {
		return ""
	}
	if at := strings.IndexByte(identityHint, '@'); at >= 0 {
		return identityHint[:at]
	}
	return identityHint
}

func hasRepeatedRun(password string, runLen int) bool {
	count := 1
	for i := 1; i < len(password); i++ {
		if password[i] == password[i-1] {
			count++
			if count >= runLen {
				return true
			}
		} else {
			count = 1
		}
	}
	return false
}

func lowDiversity(password string) bool {
	if password == "" {
		return true
	}
	unique := make(map[byte]bool, len(password))
	for i := 0; i < len(password); i++ {
		unique[password[i]] = true
	}
	return float64(len(unique))/float64(len(password)) < 0.5
}

// score is an additive heuristic capped at 100, used only for UI feedback.
func score(password string, hasLower, hasUpper, hasDigit, hasSpecial bool) int {
	s := 0
	switch {
	case len(password) >= 16:
		s += 40
	case len(password) >= 12:
		s += 30
	case len(password) >= MinLength:
		s += 20
	default:
		s += len(password) * 2
	}
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasSpecial} {
		if ok {
			s += 12
		}
	}
	if !hasRepeatedRun(password, 3) {
		s += 6
	}
	if !lowDiversity(password) {
		s += 6
	}
	if s > 100 {
		s = 100
	}
	return s
}
