package workout

import (
	"math"
	"strings"
)

// ValidationError is a local input problem. Its message is shown to the user
// as is.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

var (
	ErrMissingFields       = &ValidationError{"Por favor, preencha todos os campos!"}
	ErrSecretMismatch      = &ValidationError{"As senhas não coincidem!"}
	ErrMissingExerciseName = &ValidationError{"Por favor, informe o nome do exercício!"}
	ErrNoSets              = &ValidationError{"Por favor, adicione pelo menos uma série!"}
	ErrIncompleteSets      = &ValidationError{"Por favor, preencha repetições e carga para todas as séries!"}
	ErrMissingDate         = &ValidationError{"Por favor, selecione uma data para o treino!"}
	ErrInvalidDate         = &ValidationError{"Data inválida. Use o formato AAAA-MM-DD."}
	ErrNoExercises         = &ValidationError{"Por favor, adicione pelo menos um exercício!"}
)

// Rules tunes record validation.
type Rules struct {
	// AllowZeroLoad accepts sets with load 0 (bodyweight exercises).
	AllowZeroLoad bool
}

// ValidateLogin checks the sign-in form.
func ValidateLogin(identifier, secret string) error {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		return ErrMissingFields
	}
	return nil
}

// ValidateCredentials checks the sign-up form: every field filled and the
// confirmation equal to the secret.
func ValidateCredentials(c Credentials) error {
	if strings.TrimSpace(c.Identifier) == "" || c.Secret == "" || c.Confirmation == "" {
		return ErrMissingFields
	}
	if c.Secret != c.Confirmation {
		return ErrSecretMismatch
	}
	return nil
}

func (r Rules) ValidateSet(s Set) error {
	if s.Reps <= 0 {
		return ErrIncompleteSets
	}
	if math.IsNaN(s.Load) || math.IsInf(s.Load, 0) {
		return ErrIncompleteSets
	}
	if s.Load < 0 || (s.Load == 0 && !r.AllowZeroLoad) {
		return ErrIncompleteSets
	}
	return nil
}

func (r Rules) ValidateExercise(e Exercise) error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrMissingExerciseName
	}
	if len(e.Sets) == 0 {
		return ErrNoSets
	}
	for _, s := range e.Sets {
		if err := r.ValidateSet(s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRecord checks a record before it is persisted.
func (r Rules) ValidateRecord(rec Record) error {
	if strings.TrimSpace(rec.Date) == "" {
		return ErrMissingDate
	}
	if _, err := ParseDate(rec.Date); err != nil {
		return ErrInvalidDate
	}
	if len(rec.Exercises) == 0 {
		return ErrNoExercises
	}
	for _, e := range rec.Exercises {
		if err := r.ValidateExercise(e); err != nil {
			return err
		}
	}
	return nil
}
