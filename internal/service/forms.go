package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Tomlord1122/task-tracker/internal/domain"
)

const (
	MaxTitleLength    = 200
	MaxUsernameLength = 150
	MinPasswordLength = 8
)

const (
	requiredMessage      = "This field is required."
	nullCharacterMessage = "Null characters are not allowed."
	invalidTextMessage   = "Enter valid text."
)

// TaskForm is the user-editable part of a task.
type TaskForm struct {
	Title       string
	Description string
	Status      string
	Priority    string
}

// TaskFormFrom pre-populates a form from an existing task.
func TaskFormFrom(task *domain.Task) TaskForm {
	return TaskForm{
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
	}
}

// Normalize trims whitespace and fills in the default status and priority.
func (f *TaskForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Status = strings.TrimSpace(f.Status)
	f.Priority = strings.TrimSpace(f.Priority)
	if f.Status == "" {
		f.Status = string(domain.StatusPending)
	}
	if f.Priority == "" {
		f.Priority = string(domain.PriorityMedium)
	}
}

// Validate checks a normalized form. current is the stored task when
// editing, nil when creating.
func (f TaskForm) Validate(current *domain.Task) FieldErrors {
	errs := FieldErrors{}

	switch {
	case f.Title == "":
		errs.Add("title", requiredMessage)
	case textError(f.Title) != "":
		errs.Add("title", textError(f.Title))
	case utf8.RuneCountInString(f.Title) > MaxTitleLength:
		errs.Add("title", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).",
			MaxTitleLength, utf8.RuneCountInString(f.Title)))
	}
	if msg := textError(f.Description); msg != "" {
		errs.Add("description", msg)
	}

	status := domain.TaskStatus(f.Status)
	if !status.Valid() {
		errs.Add("status", choiceMessage(f.Status))
	} else if current != nil && current.IsCompleted() && status != domain.StatusCompleted {
		errs.Add("status", "Completed tasks cannot be reopened.")
	}

	if !domain.TaskPriority(f.Priority).Valid() {
		errs.Add("priority", choiceMessage(f.Priority))
	}

	return errs
}

// textError reports values Postgres refuses to store as text.
func textError(value string) string {
	switch {
	case strings.ContainsRune(value, 0):
		return nullCharacterMessage
	case !utf8.ValidString(value):
		return invalidTextMessage
	}
	return ""
}

// cleanText makes a value safe to send as a text parameter.
func cleanText(value string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(value, ""), "\x00", "")
}

func choiceMessage(value string) string {
	return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", value)
}

// RegisterForm carries a registration attempt. The password is entered twice.
type RegisterForm struct {
	Username  string
	Password1 string
	Password2 string
}

var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"sunshine":   {},
	"football":   {},
	"baseball":   {},
	"letmein1":   {},
	"welcome1":   {},
	"trustno1":   {},
	"superman":   {},
	"princess":   {},
	"qwerty123":  {},
	"abc12345":   {},
	"passw0rd":   {},
	"admin123":   {},
	"11111111":   {},
}

func (f *RegisterForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

// Validate checks username syntax and the password policy. Username
// uniqueness is checked against the store separately.
func (f RegisterForm) Validate() FieldErrors {
	errs := FieldErrors{}

	switch {
	case f.Username == "":
		errs.Add("username", requiredMessage)
	case textError(f.Username) != "":
		errs.Add("username", textError(f.Username))
	case utf8.RuneCountInString(f.Username) > MaxUsernameLength:
		errs.Add("username", fmt.Sprintf("Ensure this value has at most %d characters.", MaxUsernameLength))
	case !validUsername(f.Username):
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}

	if f.Password1 == "" {
		errs.Add("password1", requiredMessage)
	} else if msg := textError(f.Password1); msg != "" {
		errs.Add("password1", msg)
	}
	if f.Password2 == "" {
		errs.Add("password2", requiredMessage)
	} else if msg := textError(f.Password2); msg != "" {
		errs.Add("password2", msg)
	}
	if errs.Has("password1") || errs.Has("password2") {
		return errs
	}
	if f.Password1 != f.Password2 {
		errs.Add("password2", "The two password fields didn't match.")
		return errs
	}

	password := f.Password1
	if f.Username != "" && passwordTooSimilar(password, f.Username) {
		errs.Add("password2", "The password is too similar to the username.")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs.Add("password2", fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength))
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		errs.Add("password2", "This password is too common.")
	}
	if isNumeric(password) {
		errs.Add("password2", "This password is entirely numeric.")
	}

	return errs
}

func validUsername(username string) bool {
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if !strings.ContainsRune("@.+-_", r) {
			return false
		}
	}
	return true
}

func passwordTooSimilar(password, username string) bool {
	p := strings.ToLower(password)
	u := strings.ToLower(username)
	if p == u {
		return true
	}
	return utf8.RuneCountInString(u) >= 4 && strings.Contains(p, u)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
