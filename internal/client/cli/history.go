package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/workoutlog/internal/workout"
)

const (
	msgLoadingWorkouts = "Carregando treinos..."
	msgNoWorkouts      = "Nenhum treino registrado ainda"
)

// History prints the mirrored records, newest date first. The weekday is
// recomputed from the date; the stored label is only a fallback.
func (a *App) History(ctx context.Context) error {
	if a.workouts.Loading() {
		fmt.Fprintln(a.out, msgLoadingWorkouts)
		return nil
	}

	records := a.workouts.Records()
	if len(records) == 0 {
		fmt.Fprintln(a.out, msgNoWorkouts)
		return nil
	}

	workout.SortByDateDesc(records)
	for _, rec := range records {
		label, err := workout.WeekdayLabel(rec.Date)
		if err != nil {
			label = rec.Weekday
		}
		fmt.Fprintf(a.out, "\n%s - %s\n", capitalize(label), workout.FormatDate(rec.Date))
		printExercises(a.out, rec.Exercises)
	}
	return nil
}

func printExercises(w io.Writer, exercises []workout.Exercise) {
	for _, ex := range exercises {
		fmt.Fprintf(w, "  %s\n", ex.Name)
		for i, s := range ex.Sets {
			fmt.Fprintf(w, "    Série %d: %d repetições x %s kg\n", i+1, s.Reps, formatLoad(s.Load))
		}
	}
}

func formatLoad(load float64) string {
	return strings.Replace(strconv.FormatFloat(load, 'f', -1, 64), ".", ",", 1)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
