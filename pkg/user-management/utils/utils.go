package utils

import (
	"bufio"
	"log/slog"
	"net/mail"
	"os"
	"regexp"
	"strings"
)

const (
	PASSWORD_MIN_LEN = 8
	PASSWORD_MAX_LEN = 72 // bcrypt ignores everything after 72 bytes
)

var (
	emailRule = regexp.MustCompile(`^[a-zA-Z0-9._%+'-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	lowercase = regexp.MustCompile("[a-z]")
	uppercase = regexp.MustCompile("[A-Z]")
	number    = regexp.MustCompile(`\d`)
	symbol    = regexp.MustCompile(`\W`)
)

var blockedPasswords map[string]struct{}

func LoadBlockedPasswords(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	blockedPasswords = make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	lines := 0
	usedEntries := 0
	for scanner.Scan() {
		lines += 1
		passwordEntry := strings.TrimSpace(scanner.Text())
		if CheckPasswordFormat(passwordEntry) {
			usedEntries += 1
			blockedPasswords[passwordEntry] = struct{}{}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	slog.Info("loaded blocked password list", slog.Int("lines", lines), slog.Int("used", usedEntries))
	return nil
}

func SanitizeEmail(email string) string {
	email = strings.ToLower(email)
	email = strings.Trim(email, " \n\r")
	return email
}

// CheckEmailFormat to check if input string is a correct email address
func CheckEmailFormat(email string) bool {
	if len(email) > 254 {
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	return emailRule.MatchString(email)
}

// BlurEmailAddress transforms an email address to reduce exposed personal info
func BlurEmailAddress(email string) string {
	items := strings.Split(email, "@")
	if len(items) < 2 || len(items[0]) < 1 {
		return "****@**"
	}

	return string([]rune(items[0])[0]) + "****@" + strings.Join(items[1:], "")
}

// CheckPasswordFormat requires the length limits and at least three of lower case, upper case,
// digit and symbol.
func CheckPasswordFormat(password string) bool {
	pl := len(password)
	if pl < PASSWORD_MIN_LEN || pl > PASSWORD_MAX_LEN {
		return false
	}

	res := 0
	for _, rule := range []*regexp.Regexp{lowercase, uppercase, number, symbol} {
		if rule.MatchString(password) {
			res++
		}
	}
	return res > 2
}

func IsPasswordOnBlocklist(password string) bool {
	_, exists := blockedPasswords[password]
	return exists
}
