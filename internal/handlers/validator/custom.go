package validator

import (
	"mime"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"
)

// AllowedMediaTypes are the upload content types accepted for transcription.
var AllowedMediaTypes = []string{
	"audio/mpeg", "audio/wav", "audio/m4a", "audio/flac",
	"video/mp4", "video/avi", "video/mov", "video/mkv",
}

var (
	languageCodeRegex = regexp.MustCompile(`^[a-zA-Z]{2,3}$`)
	// whisper also accepts language names like "english" or "haitian creole"
	languageNameRegex = regexp.MustCompile(`^[a-zA-Z]+( [a-zA-Z]+)?$`)
)

// IsAllowedMediaType ignores media type parameters such as charset.
func IsAllowedMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return funk.ContainsString(AllowedMediaTypes, strings.ToLower(mediaType))
}

func mediaTypeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return IsAllowedMediaType(val)
}

func languageValidator(fl validator.FieldLevel) bool {
	var val string
	switch v := fl.Field().Interface().(type) {
	case string:
		val = v
	case *string:
		if v == nil {
			return true
		}
		val = *v
	default:
		return false
	}

	val = strings.TrimSpace(val)
	if val == "" || strings.EqualFold(val, "auto") {
		return true
	}

	return languageCodeRegex.MatchString(val) || (len(val) <= 32 && languageNameRegex.MatchString(val))
}
