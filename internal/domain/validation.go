package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return ValidationError("invalid email")
	}
	return nil
}

// ValidatePhone accepts E.164 numbers such as +14155550123.
func ValidatePhone(phone string) error {
	if err := validate.Var(phone, "required,e164"); err != nil {
		return ValidationError("invalid phone number")
	}
	return nil
}

func ValidateName(name string) error {
	if err := validate.Var(strings.TrimSpace(name), "required,min=2,max=50"); err != nil {
		return ValidationError("name must be between 2 and 50 characters")
	}
	return nil
}

func ValidatePassword(password string) error {
	if err := validate.Var(password, "required,min=8,max=72"); err != nil {
		return ValidationError("password must be between 8 and 72 characters")
	}
	return nil
}

func ValidateGender(g Gender) error {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return nil
	}
	return ValidationError("gender must be one of male, female, other")
}

// ValidateAdult rejects dates of birth younger than MinAge at now.
func ValidateAdult(dob, now time.Time) error {
	if dob.IsZero() || dob.After(now) {
		return ValidationError("invalid date of birth")
	}
	if AgeAt(dob, now) < MinAge {
		return ErrUnderage
	}
	return nil
}

func ValidateBio(bio string) error {
	if err := validate.Var(bio, "max=500"); err != nil {
		return ValidationError("bio must be at most 500 characters")
	}
	return nil
}

func ValidateInterests(interests []string) error {
	if len(interests) > MaxInterests {
		return ValidationError("at most 10 interests allowed")
	}
	for _, in := range interests {
		if err := validate.Var(strings.TrimSpace(in), "required,max=30"); err != nil {
			return ValidationError("interests must be 1 to 30 characters")
		}
	}
	return nil
}

func ValidateLocation(lat, lon float64) error {
	if err := validate.Var(lat, "latitude"); err != nil {
		return ValidationError("latitude must be between -90 and 90")
	}
	if err := validate.Var(lon, "longitude"); err != nil {
		return ValidationError("longitude must be between -180 and 180")
	}
	return nil
}

func ValidatePhotoURL(url string) error {
	if err := validate.Var(url, "required,url,max=2048"); err != nil {
		return ValidationError("invalid photo url")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return ValidationError("photo url must use http or https")
	}
	return nil
}

// ValidateMessage checks the body length in characters and the type enum.
func ValidateMessage(body string, t MessageType) error {
	if err := validate.Var(body, "min=1,max=1000"); err != nil {
		return ValidationError("message must be between 1 and 1000 characters")
	}
	if strings.TrimSpace(body) == "" {
		return ValidationError("message must not be blank")
	}
	if !t.Valid() {
		return ValidationError("message type must be one of text, image, gif, emoji")
	}
	return nil
}

// ValidatePage checks page >= 1 and 1 <= pageSize <= 100.
func ValidatePage(page, pageSize int) error {
	if page < 1 {
		return ValidationError("page must be at least 1")
	}
	if pageSize < 1 || pageSize > 100 {
		return ValidationError("limit must be between 1 and 100")
	}
	return nil
}
