// Package workout defines the workout record model and the validation rules
// shared by the input forms and the sync layer.
package workout

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Set is one series of an exercise.
type Set struct {
	Reps int     `json:"repeticoes"`
	Load float64 `json:"carga"`
}

type Exercise struct {
	ID   string `json:"id"`
	Name string `json:"nome"`
	Sets []Set  `json:"series"`
}

// Record is one logged training session. ID is the key assigned by the data
// store on insert and is never serialized into the record body.
type Record struct {
	ID        string     `json:"-"`
	Date      string     `json:"data"`
	Weekday   string     `json:"diaSemana"`
	Exercises []Exercise `json:"exercicios"`
	Timestamp int64      `json:"timestamp"`
}

// Credentials is the sign-up/sign-in form input.
type Credentials struct {
	Identifier   string
	Secret       string
	Confirmation string
}

// NewExercise builds an exercise with a fresh client-side ID and a trimmed name.
func NewExercise(name string, sets []Set) Exercise {
	return Exercise{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(name),
		Sets: sets,
	}
}

// NewRecord validates the input and builds a record ready to be saved.
// The weekday label is derived from date and the timestamp taken from now.
func NewRecord(rules Rules, date string, exercises []Exercise, now time.Time) (Record, error) {
	rec := Record{
		Date:      strings.TrimSpace(date),
		Exercises: exercises,
		Timestamp: now.UnixMilli(),
	}
	if err := rules.ValidateRecord(rec); err != nil {
		return Record{}, err
	}

	label, err := WeekdayLabel(rec.Date)
	if err != nil {
		return Record{}, err
	}
	rec.Weekday = label
	return rec, nil
}
