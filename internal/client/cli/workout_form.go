package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/workoutlog/internal/workout"
)

const (
	msgSaveFailed      = "Erro ao salvar o treino. Tente novamente."
	msgInvalidExercise = "Número de exercício inválido."
	msgNoSetToRemove   = "Nenhuma série para remover."

	cmdDiscard   = "descartar"
	cmdRemoveSet = "remover"
)

// NewWorkout runs the workout form: a date (today by default), then
// exercises until an empty name. Nothing is sent unless the whole record
// validates. When saving fails the entered exercises are kept as a draft for
// the next attempt.
func (a *App) NewWorkout(ctx context.Context) error {
	def := a.draftDate
	if def == "" {
		def = workout.Today(a.now())
	}

	date, err := getSimpleText(a.reader, fmt.Sprintf("Data do treino (AAAA-MM-DD) [%s]", def), a.out)
	if err != nil {
		return err
	}
	if date == "" {
		date = def
	}
	if _, err := workout.ParseDate(date); err != nil {
		a.notifier.Alert(ctx, workout.ErrInvalidDate.Error())
		return workout.ErrInvalidDate
	}
	a.draftDate = date

	if err := a.editDraft(ctx); err != nil {
		return err
	}

	for {
		name, err := getSimpleText(a.reader, "Nome do exercício (ex: Supino Reto, Enter vazio para concluir)", a.out)
		if err != nil {
			return err
		}
		if name == "" {
			break
		}

		sets, err := a.readSets(ctx)
		if err != nil {
			return err
		}

		ex := workout.NewExercise(name, sets)
		if err := a.rules.ValidateExercise(ex); err != nil {
			a.notifier.Alert(ctx, err.Error())
			continue
		}
		a.draft = append(a.draft, ex)
		fmt.Fprintf(a.out, "Exercício adicionado: %s (%d séries)\n", ex.Name, len(ex.Sets))
	}

	rec, err := workout.NewRecord(a.rules, date, a.draft, a.now())
	if err != nil {
		a.notifier.Alert(ctx, err.Error())
		return err
	}

	if _, err := a.workouts.Save(ctx, rec); err != nil {
		a.notifier.Alert(ctx, msgSaveFailed)
		return err
	}

	a.draft, a.draftDate = nil, ""
	return nil
}

// editDraft lists a pending draft and lets the user drop exercises by number
// or discard the whole draft. An empty answer keeps what is left.
func (a *App) editDraft(ctx context.Context) error {
	for len(a.draft) > 0 {
		fmt.Fprintf(a.out, "Rascunho com %d exercício(s):\n", len(a.draft))
		for i, ex := range a.draft {
			fmt.Fprintf(a.out, "%d.", i+1)
			printExercises(a.out, []workout.Exercise{ex})
		}

		answer, err := getSimpleText(a.reader, "Número do exercício para remover, 'descartar' para apagar o rascunho (Enter vazio para continuar)", a.out)
		if err != nil {
			return err
		}
		switch {
		case answer == "":
			return nil
		case strings.EqualFold(answer, cmdDiscard):
			a.draft = nil
			fmt.Fprintln(a.out, "Rascunho descartado.")
			return nil
		}

		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(a.draft) {
			a.notifier.Alert(ctx, msgInvalidExercise)
			continue
		}
		removed := a.draft[n-1]
		a.draft = append(a.draft[:n-1:n-1], a.draft[n:]...)
		fmt.Fprintf(a.out, "Exercício removido: %s\n", removed.Name)
	}
	return nil
}

func (a *App) readSets(ctx context.Context) ([]workout.Set, error) {
	fmt.Fprintln(a.out, "Séries: uma por linha no formato 'repetições carga' (ex: 10 40), 'remover' apaga a última. Enter vazio para terminar.")

	var sets []workout.Set
	for {
		line, err := getSimpleText(a.reader, fmt.Sprintf("Série %d", len(sets)+1), a.out)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return sets, nil
		}
		if strings.EqualFold(line, cmdRemoveSet) {
			if len(sets) == 0 {
				a.notifier.Alert(ctx, msgNoSetToRemove)
				continue
			}
			sets = sets[:len(sets)-1]
			fmt.Fprintf(a.out, "Série %d removida.\n", len(sets)+1)
			continue
		}

		set, ok := parseSet(line)
		if !ok {
			a.notifier.Alert(ctx, workout.ErrIncompleteSets.Error())
			continue
		}
		sets = append(sets, set)
	}
}

// parseSet reads "reps load". A decimal comma is accepted in the load.
func parseSet(line string) (workout.Set, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return workout.Set{}, false
	}
	reps, err := strconv.Atoi(fields[0])
	if err != nil {
		return workout.Set{}, false
	}
	load, err := strconv.ParseFloat(strings.Replace(fields[1], ",", ".", 1), 64)
	if err != nil {
		return workout.Set{}, false
	}
	return workout.Set{Reps: reps, Load: load}, true
}
