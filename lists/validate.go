package lists

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"marquee/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("date", isDate); err != nil {
		panic(err)
	}
	return v
}

// isDate accepts real calendar dates in models.DateLayout
func isDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(models.DateLayout, fl.Field().String())
	return err == nil
}

// watchedFields is the merged shape a watched item must satisfy
type watchedFields struct {
	TMDBID      int              `validate:"required,min=1"`
	Type        models.MediaType `validate:"required,oneof=movie tv"`
	WatchedDate string           `validate:"required,date"`
	Rating      *int             `validate:"required,min=1,max=10"`
}

type watchlistFields struct {
	TMDBID    int              `validate:"required,min=1"`
	Type      models.MediaType `validate:"required,oneof=movie tv"`
	AddedDate string           `validate:"required,date"`
}

// Checks run in this order; the first failing rule decides the message.
var ruleOrder = []struct {
	field, tag string
	message    string
}{
	{"Type", "oneof", msgInvalidType},
	{"Rating", "min", msgInvalidRating},
	{"Rating", "max", msgInvalidRating},
	{"TMDBID", "min", msgInvalidTMDBID},
	{"WatchedDate", "date", msgInvalidDate},
	{"AddedDate", "date", msgInvalidDate},
}

// check validates s and reduces the failures to a single ValidationError.
// Missing required fields always win over other failures.
func check(s any, missing string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	failed := make(map[[2]string]bool, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &ValidationError{Message: missing}
		}
		failed[[2]string{fe.StructField(), fe.Tag()}] = true
	}

	for _, rule := range ruleOrder {
		if failed[[2]string{rule.field, rule.tag}] {
			return &ValidationError{Message: rule.message}
		}
	}
	return &ValidationError{Message: verrs[0].Error()}
}
