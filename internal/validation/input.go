package validation

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

// Константы валидации
const (
	MaxDescriptionLength = 2000
	MaxPlaceLength       = 100
	MaxPhotoRefLength    = 500
	MaxCommentLength     = 1000
)

// ReportInput — текстовые поля нового отчёта; nil означает "не передано".
type ReportInput struct {
	Description *string
	PhotoBefore *string
	City        *string
	Country     *string
}

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return invalid("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return invalid("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateReport проверяет необязательные поля отчёта. Координаты проверяет сама сущность.
func ValidateReport(in ReportInput) error {
	if err := validateOptional("описание", in.Description, MaxDescriptionLength); err != nil {
		return err
	}
	if err := ValidatePlace("город", in.City); err != nil {
		return err
	}
	if err := ValidatePlace("страна", in.Country); err != nil {
		return err
	}
	if in.PhotoBefore != nil && strings.TrimSpace(*in.PhotoBefore) != "" {
		if err := ValidatePhotoRef(*in.PhotoBefore); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePlace проверяет город или страну.
func ValidatePlace(fieldName string, place *string) error {
	if place == nil {
		return nil
	}
	p := strings.TrimSpace(*place)
	if err := ValidateLength(fieldName, p, 0, MaxPlaceLength); err != nil {
		return err
	}
	if strings.ContainsAny(p, "<>\"'`;") {
		return invalid("%s содержит недопустимые символы", fieldName)
	}
	return nil
}

// ValidatePhotoRef принимает относительный путь внутри хранилища или ссылку http(s).
func ValidatePhotoRef(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return apperror.ErrPhotoRequired
	}
	if err := ValidateLength("ссылка на фото", ref, 0, MaxPhotoRefLength); err != nil {
		return err
	}

	if strings.Contains(ref, "://") {
		parsedURL, err := url.Parse(ref)
		if err != nil {
			return invalid("некорректный формат URL")
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return invalid("ссылка должна начинаться с http:// или https://")
		}
		if parsedURL.Host == "" {
			return invalid("ссылка должна содержать доменное имя")
		}
		return nil
	}

	// Относительный путь: без выхода за пределы хранилища.
	if strings.HasPrefix(ref, "/") || strings.Contains(ref, "\\") {
		return invalid("путь к фото должен быть относительным")
	}
	for _, part := range strings.Split(path.Clean(ref), "/") {
		if part == ".." {
			return invalid("путь к фото не может выходить за пределы хранилища")
		}
	}
	return nil
}

// ValidateComment проверяет комментарий к голосу. Обязательность для
// отрицательного голоса проверяет сама сущность голоса.
func ValidateComment(comment *string) error {
	return validateOptional("комментарий", comment, MaxCommentLength)
}

func validateOptional(fieldName string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return ValidateLength(fieldName, strings.TrimSpace(*value), 0, max)
}

func invalid(format string, args ...interface{}) error {
	return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf(format, args...))
}
